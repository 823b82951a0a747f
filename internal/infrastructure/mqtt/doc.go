// Package mqtt connects a node to the MQTT broker shared by the nodes of an
// installation.
//
// Each node owns the topics under <prefix>/<node>/:
//
//	<prefix>/<node>/config              retained, last saved config
//	<prefix>/<node>/event/<op>          one message per edit
//	<prefix>/<node>/status              retained online/offline (LWT)
//	<prefix>/<node>/api_target_options  retained, the node's option table
//
// Other nodes subscribe to <prefix>/+/api_target_options to learn which
// commands an API target may send to each node.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Node.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishRetained(client.Topics().Config(), payload)
package mqtt

// Package nodebus bridges a node's config store onto the MQTT bus.
//
// Saved configs and the node's API target option table are published as
// retained messages so late subscribers see the current state; every edit
// is announced as a non-retained event. Option tables published by other
// nodes are fed into the local nodeconfig.Resolver, so an API target on this
// node can offer commands for any node on the bus.
package nodebus

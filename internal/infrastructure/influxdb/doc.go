// Package influxdb records config edit telemetry in InfluxDB.
//
// Two measurements are written, both tagged with the node ID:
//
//	nodeconfig_edits  tags: op            fields: seq, devices, sensors, instance
//	nodeconfig_saves  tags: result        fields: revision, instances, error
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Node.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteChange(change)
//
// Writes are non-blocking and batched (batch_size, flush_interval);
// asynchronous write errors go to the SetOnError callback.
package influxdb

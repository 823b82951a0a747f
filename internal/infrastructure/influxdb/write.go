package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// Measurement names.
const (
	measurementEdits = "nodeconfig_edits"
	measurementSaves = "nodeconfig_saves"
)

// WriteChange records one committed edit. It matches nodeconfig.Observer.
func (c *Client) WriteChange(change nodeconfig.Change) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(changePoint(c.node, change))
}

// WriteSave records a save attempt. It matches nodeconfig.SaveHook.
func (c *Client) WriteSave(rev *nodeconfig.Revision, err error) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(savePoint(c.node, rev, err, time.Now()))
}

// changePoint builds an edit point tagged by node and op, carrying the
// instance counts after the edit.
func changePoint(node string, change nodeconfig.Change) *write.Point {
	fields := map[string]interface{}{
		"seq": int64(change.Revision), // #nosec G115 -- edit counter never nears MaxInt64
	}
	for category, n := range change.Counts {
		fields[string(category)+"s"] = n
	}
	if change.ID != "" {
		fields["instance"] = change.ID
	}

	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		measurementEdits,
		map[string]string{
			"node": node,
			"op":   change.Op,
		},
		fields,
		at,
	)
}

func savePoint(node string, rev *nodeconfig.Revision, err error, at time.Time) *write.Point {
	result := "ok"
	fields := map[string]interface{}{}
	if err != nil {
		result = "error"
		fields["error"] = err.Error()
	}
	if rev != nil {
		fields["revision"] = rev.ID
		fields["instances"] = rev.InstanceCount
		if !rev.CreatedAt.IsZero() {
			at = rev.CreatedAt
		}
	}
	return write.NewPoint(
		measurementSaves,
		map[string]string{
			"node":   node,
			"result": result,
		},
		fields,
		at,
	)
}

package influxdb

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

func TestChangePoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := changePoint("kitchen", nodeconfig.Change{
		Op:       nodeconfig.OpDeleteInstance,
		ID:       "device2",
		Revision: 7,
		Counts:   map[nodeconfig.Category]int{nodeconfig.CategoryDevice: 2, nodeconfig.CategorySensor: 1},
		At:       at,
	})

	line := write.PointToLineProtocol(p, time.Nanosecond)
	for _, want := range []string{
		"nodeconfig_edits,node=kitchen,op=delete_instance ",
		"devices=2i",
		"sensors=1i",
		"seq=7i",
		`instance="device2"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if p.Time() != at {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}
}

func TestChangePointDefaultsTime(t *testing.T) {
	p := changePoint("kitchen", nodeconfig.Change{Op: nodeconfig.OpReplace})
	if p.Time().IsZero() {
		t.Error("expected a timestamp for a change without one")
	}
	if strings.Contains(write.PointToLineProtocol(p, time.Nanosecond), "instance=") {
		t.Error("instance field should be omitted when the change has no ID")
	}
}

func TestSavePoint(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ok := savePoint("kitchen", &nodeconfig.Revision{ID: "rev-1", InstanceCount: 3, CreatedAt: created}, nil, time.Now())

	line := write.PointToLineProtocol(ok, time.Nanosecond)
	if !strings.HasPrefix(line, "nodeconfig_saves,node=kitchen,result=ok ") {
		t.Errorf("line = %q", line)
	}
	if !strings.Contains(line, `revision="rev-1"`) || !strings.Contains(line, "instances=3i") {
		t.Errorf("line = %q", line)
	}
	if ok.Time() != created {
		t.Errorf("Time() = %v, want revision time", ok.Time())
	}

	failed := savePoint("kitchen", nil, errors.New("disk full"), created)
	line = write.PointToLineProtocol(failed, time.Nanosecond)
	if !strings.Contains(line, "result=error") || !strings.Contains(line, `error="disk full"`) {
		t.Errorf("line = %q", line)
	}
}

func TestWritesSkippedWhenDisconnected(t *testing.T) {
	c := &Client{}
	// writeAPI is nil; these would panic if they tried to write.
	c.WriteChange(nodeconfig.Change{Op: nodeconfig.OpAddInstance})
	c.WriteSave(nil, nil)
	c.Flush()
}

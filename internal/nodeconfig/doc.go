// Package nodeconfig holds the configuration state of one node: its devices,
// sensors and optional IR blaster.
//
// Instances are addressed by IDs of the form "device3" or "sensor1". Within
// each category the IDs are always 1..N with no gaps, so deleting an
// instance renumbers every later instance of the same category and rewrites
// every reference to a moved ID.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                             Store                                │
//	│                                                                  │
//	│  ┌────────────────┐   ┌────────────────┐   ┌────────────────┐    │
//	│  │  Mutation API  │──▶│  Renumbering   │   │    Catalog     │    │
//	│  │ (mutations.go) │   │ (renumber.go)  │   │  (catalog.go)  │    │
//	│  └────────────────┘   └────────────────┘   └────────────────┘    │
//	│          │                                         │             │
//	│          ▼                                         ▼             │
//	│  ┌────────────────┐                        ┌────────────────┐    │
//	│  │ Snapshot + key │───────────────────────▶│    Resolver    │    │
//	│  │   registry     │                        │ (resolver.go)  │    │
//	│  └────────────────┘                        └────────────────┘    │
//	└──────────│───────────────────────────────────────────────────────┘
//	           ▼
//	┌────────────────────┐   ┌────────────────────┐
//	│ Service (save /    │──▶│ SQLite revisions   │
//	│ restore / publish) │   │ (repository.go)    │
//	└────────────────────┘   └────────────────────┘
//
// # Key Types
//
//   - Config: the full snapshot (metadata, wifi, ir_blaster, instances)
//   - Instance: one device or sensor record; an empty Type means unconfigured
//   - Store: the authoritative snapshot plus the key registry
//   - Catalog: read-only type metadata and the IR keymap
//   - Resolver: derives the commands an API target may send
//
// # Key registry
//
// Every live instance has an opaque key. The key is created with the
// instance, dropped with it, and moved (never recreated) when renumbering
// changes the instance's ID. A view layer can use it to keep identity across
// a delete.
//
// # Usage
//
//	catalog, err := nodeconfig.DefaultCatalog()
//	if err != nil {
//	    return err
//	}
//	store := nodeconfig.NewStore(catalog)
//
//	id, _ := store.AddInstance(nodeconfig.CategoryDevice)   // "device1"
//	err = store.ChangeInstanceType(id, nodeconfig.CategoryDevice, "dimmer")
//	err = store.HandleInputChange(id, "ip", "192.168.1.50")
//
// Mutations are purely in memory. Service.Save serialises the whole
// snapshot as one revision.
//
// # Thread Safety
//
// All Store methods are safe for concurrent use. Mutations are serialised
// and each one works on the latest snapshot.
package nodeconfig

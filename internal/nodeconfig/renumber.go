package nodeconfig

// renumber closes the ID gap left by a deleted instance.
//
// It must run after the deleted entry has been removed from both cfg and
// keys. Every later instance of the same category moves down by one: its
// record is moved, its registry key is moved with it (the key is never
// recreated), and references to the old ID are rewritten to the new one.
//
// A rewritten reference keeps its position in the list it lives in.
func renumber(cfg *Config, keys map[string]string, category Category, removedIndex int) {
	for i := removedIndex; ; i++ {
		newID := MakeID(category, i)
		oldID := MakeID(category, i+1)

		inst, ok := cfg.Instances[oldID]
		if !ok {
			return
		}

		cfg.Instances[newID] = inst.DeepCopy()
		delete(cfg.Instances, oldID)

		if key, ok := keys[oldID]; ok {
			keys[newID] = key
			delete(keys, oldID)
		}

		rewriteReferences(cfg, oldID, newID)
	}
}

// rewriteReferences renames oldID to newID in every sensor target list and
// in the IR blaster target list.
func rewriteReferences(cfg *Config, oldID, newID string) {
	if CategoryOf(oldID) == CategoryDevice {
		for _, sensorID := range cfg.IDs(CategorySensor) {
			sensor := cfg.Instances[sensorID]
			if !sensor.HasTargets() {
				continue
			}
			targets := sensor.Targets()
			if renameInList(targets, oldID, newID) {
				sensor.SetTargets(targets)
			}
		}
	}

	if cfg.IRBlaster != nil {
		renameInList(cfg.IRBlaster.Target, oldID, newID)
	}
}

// removeReferences drops id from every sensor target list and from the IR
// blaster target list.
func removeReferences(cfg *Config, id string) {
	if CategoryOf(id) == CategoryDevice {
		for _, sensorID := range cfg.IDs(CategorySensor) {
			sensor := cfg.Instances[sensorID]
			if !sensor.HasTargets() {
				continue
			}
			targets := sensor.Targets()
			if pruned, changed := removeFromList(targets, id); changed {
				sensor.SetTargets(pruned)
			}
		}
	}

	if cfg.IRBlaster != nil {
		cfg.IRBlaster.Target, _ = removeFromList(cfg.IRBlaster.Target, id)
	}
}

// renameInList replaces oldID with newID in place.
func renameInList(list []string, oldID, newID string) bool {
	changed := false
	for i, v := range list {
		if v == oldID {
			list[i] = newID
			changed = true
		}
	}
	return changed
}

// removeFromList returns list without any occurrence of id.
func removeFromList(list []string, id string) ([]string, bool) {
	out := list[:0:0]
	changed := false
	for _, v := range list {
		if v == id {
			changed = true
			continue
		}
		out = append(out, v)
	}
	if !changed {
		return list, false
	}
	return out, true
}

// containsString reports whether list contains s.
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

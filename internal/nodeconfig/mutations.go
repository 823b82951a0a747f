package nodeconfig

import (
	"fmt"
	"math"
)

// Tolerance bounds for thermostat-capable sensors.
const (
	MinTolerance = 0.1
	MaxTolerance = 10.0
)

// AddInstance appends an unconfigured instance to a category and returns
// its ID.
func (s *Store) AddInstance(category Category) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	var id string
	err := s.mutate(OpAddInstance, "", func(work *Config, keys map[string]string) error {
		id = MakeID(category, work.Count(category)+1)
		work.Instances[id] = NewUnconfigured()
		keys[id] = newKey()
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("instance added", "id", id)
	return id, nil
}

// DeleteInstance removes an instance and renumbers the rest of its category.
//
// References to the deleted ID are dropped from sensor target lists and from
// the IR blaster before the remaining instances shift down.
func (s *Store) DeleteInstance(id string) error {
	category, index, err := ParseID(id)
	if err != nil {
		return err
	}

	err = s.mutate(OpDeleteInstance, id, func(work *Config, keys map[string]string) error {
		if _, err := lookup(work, id); err != nil {
			return err
		}

		removeReferences(work, id)
		delete(work.Instances, id)
		delete(keys, id)
		renumber(work, keys, category, index)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("instance deleted", "id", id)
	return nil
}

// ChangeInstanceType replaces an instance with a fresh template of newType.
//
// Values entered for the previous type are discarded. Ranged rule prompts
// get their rule fields seeded from the type's limits.
func (s *Store) ChangeInstanceType(id string, category Category, newType string) error {
	idCategory, _, err := ParseID(id)
	if err != nil {
		return err
	}
	if idCategory != category {
		return fmt.Errorf("%w: %s is a %s", ErrCategoryMismatch, id, idCategory)
	}

	meta, err := s.catalog.Lookup(category, newType)
	if err != nil {
		return err
	}

	err = s.mutate(OpChangeType, id, func(work *Config, _ map[string]string) error {
		if _, err := lookup(work, id); err != nil {
			return err
		}

		inst := meta.newFromTemplate()
		seedRule(inst, meta)
		work.Instances[id] = inst
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("instance type changed", "id", id, "type", newType)
	return nil
}

// HandleInputChange sets one parameter of an instance.
//
// Numeric rule fields are clamped into the type's rule limits and tolerance
// into [MinTolerance, MaxTolerance].
func (s *Store) HandleInputChange(id, param string, value any) error {
	if param == ParamType {
		return fmt.Errorf("%w: %s", ErrReservedParam, param)
	}
	if param == "" {
		return fmt.Errorf("%w: empty parameter name", ErrInvalidConfig)
	}

	return s.mutate(OpInputChange, id, func(work *Config, _ map[string]string) error {
		inst, err := lookup(work, id)
		if err != nil {
			return err
		}

		if param == ParamTargets {
			targets := toStringSlice(value)
			if err := checkSensorTargets(work, id, targets); err != nil {
				return err
			}
			inst.SetTargets(targets)
			return nil
		}

		inst.Params[param] = deepCopyValue(s.clampParam(id, inst, param, value))
		return nil
	})
}

// HandleInstanceUpdate replaces a whole instance record.
func (s *Store) HandleInstanceUpdate(id string, inst *Instance) error {
	if inst == nil {
		return fmt.Errorf("%w: nil instance record", ErrInvalidConfig)
	}
	next := inst.DeepCopy()
	if next.Params == nil {
		next.Params = Params{}
	}

	return s.mutate(OpInstanceUpdate, id, func(work *Config, _ map[string]string) error {
		return s.updateInstance(work, id, next)
	})
}

// HandleSensorTargetSelect adds deviceID to a sensor's targets when checked
// and removes it when not. Repeating a call is a no-op.
func (s *Store) HandleSensorTargetSelect(sensorID, deviceID string, checked bool) error {
	if CategoryOf(sensorID) != CategorySensor {
		return fmt.Errorf("%w: %s", ErrNotSensor, sensorID)
	}
	if CategoryOf(deviceID) != CategoryDevice {
		return fmt.Errorf("%w: %s", ErrNotDevice, deviceID)
	}

	return s.mutate(OpSensorTarget, sensorID, func(work *Config, _ map[string]string) error {
		sensor, err := lookup(work, sensorID)
		if err != nil {
			return err
		}
		if _, err := lookup(work, deviceID); err != nil {
			return err
		}

		targets := sensor.Targets()
		present := containsString(targets, deviceID)
		switch {
		case checked && !present:
			sensor.SetTargets(append(targets, deviceID))
		case !checked && present:
			pruned, _ := removeFromList(targets, deviceID)
			sensor.SetTargets(pruned)
		default:
			return errUnchanged
		}
		return nil
	})
}

// HandleIRTargetSelect adds target to the IR blaster's target list when
// checked and removes it when not. Repeating a call is a no-op.
//
// A target is either an instance ID or a remote name from the IR keymap.
func (s *Store) HandleIRTargetSelect(target string, checked bool) error {
	return s.mutate(OpIRTarget, target, func(work *Config, _ map[string]string) error {
		if work.IRBlaster == nil {
			return ErrNoIRBlaster
		}

		present := containsString(work.IRBlaster.Target, target)
		switch {
		case checked && !present:
			if err := s.checkIRTarget(work, target); err != nil {
				return err
			}
			work.IRBlaster.Target = append(work.IRBlaster.Target, target)
		case !checked && present:
			work.IRBlaster.Target, _ = removeFromList(work.IRBlaster.Target, target)
		default:
			return errUnchanged
		}
		return nil
	})
}

// ChangeUnits switches a thermostat-capable sensor to other temperature
// units. The default rule and every numeric schedule entry are converted
// and committed together with the new units as one record replacement.
func (s *Store) ChangeUnits(id, units string) error {
	if CategoryOf(id) != CategorySensor {
		return fmt.Errorf("%w: %s", ErrNotThermostat, id)
	}
	if !ValidUnits(units) {
		return fmt.Errorf("%w: %q", ErrInvalidUnits, units)
	}

	err := s.mutate(OpChangeUnits, id, func(work *Config, _ map[string]string) error {
		inst, err := lookup(work, id)
		if err != nil {
			return err
		}
		current, ok := inst.Units()
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotThermostat, id)
		}
		if current == units {
			return errUnchanged
		}

		next, err := convertUnits(inst, current, units)
		if err != nil {
			return err
		}
		return s.updateInstance(work, id, next)
	})
	if err != nil {
		return err
	}

	s.logger.Info("instance units changed", "id", id, "units", units)
	return nil
}

// SetIRBlaster installs or replaces the IR blaster peripheral.
func (s *Store) SetIRBlaster(ir *IRBlaster) error {
	if ir == nil {
		return fmt.Errorf("%w: nil ir_blaster", ErrInvalidConfig)
	}
	next := ir.DeepCopy()
	if next.Target == nil {
		next.Target = []string{}
	}

	return s.mutate(OpSetIRBlaster, "", func(work *Config, _ map[string]string) error {
		for _, target := range next.Target {
			if err := s.checkIRTarget(work, target); err != nil {
				return err
			}
		}
		work.IRBlaster = next
		return nil
	})
}

// RemoveIRBlaster removes the IR blaster peripheral.
func (s *Store) RemoveIRBlaster() error {
	return s.mutate(OpRemoveIRBlaster, "", func(work *Config, _ map[string]string) error {
		if work.IRBlaster == nil {
			return ErrNoIRBlaster
		}
		work.IRBlaster = nil
		return nil
	})
}

// updateInstance validates and installs a full record on a working copy.
func (s *Store) updateInstance(work *Config, id string, next *Instance) error {
	if _, err := lookup(work, id); err != nil {
		return err
	}
	if next.Configured() {
		if _, err := s.catalog.Lookup(CategoryOf(id), next.Type); err != nil {
			return err
		}
	}
	if next.HasTargets() {
		if err := checkSensorTargets(work, id, next.Targets()); err != nil {
			return err
		}
	}
	work.Instances[id] = next
	return nil
}

// clampParam applies the clamp policy to one incoming field value.
func (s *Store) clampParam(id string, inst *Instance, param string, value any) any {
	if param == ParamTolerance {
		if f, ok := toFloat(value); ok {
			return clamp(f, MinTolerance, MaxTolerance)
		}
		return value
	}

	if param != ParamDefaultRule && param != ParamMinRule && param != ParamMaxRule {
		return value
	}
	f, ok := toFloat(value)
	if !ok || !inst.Configured() {
		return value
	}

	meta, err := s.catalog.Lookup(CategoryOf(id), inst.Type)
	if err != nil || !meta.RulePrompt.Ranged() {
		return value
	}
	low, high := ruleLimits(inst, meta)
	f = clamp(f, low, high)

	if meta.RulePrompt == RulePromptIntOrFade {
		f = math.Round(f)
		if param == ParamDefaultRule {
			minRule, minOK := toFloat(inst.Params[ParamMinRule])
			maxRule, maxOK := toFloat(inst.Params[ParamMaxRule])
			if minOK && maxOK && minRule <= maxRule {
				f = clamp(f, minRule, maxRule)
			}
		}
	}
	return f
}

// checkIRTarget accepts existing instance IDs and remotes from the keymap.
func (s *Store) checkIRTarget(work *Config, target string) error {
	if IsInstanceID(target) {
		_, err := lookup(work, target)
		return err
	}
	if _, ok := s.catalog.IRKeys(target); !ok {
		return fmt.Errorf("%w: ir target %q", ErrUnknownTarget, target)
	}
	return nil
}

// checkSensorTargets verifies a target list for the instance id.
// Only sensors carry targets and every entry must be an existing device.
func checkSensorTargets(work *Config, id string, targets []string) error {
	if CategoryOf(id) != CategorySensor {
		return fmt.Errorf("%w: %s", ErrNotSensor, id)
	}
	for _, target := range targets {
		if CategoryOf(target) != CategoryDevice {
			return fmt.Errorf("%w: %s", ErrNotDevice, target)
		}
		if _, err := lookup(work, target); err != nil {
			return err
		}
	}
	return nil
}

// seedRule fills the rule fields of a fresh template so a ranged rule never
// starts out undefined.
func seedRule(inst *Instance, meta TypeMetadata) {
	if !meta.RulePrompt.Ranged() || len(meta.RuleLimits) != 2 {
		return
	}
	low, high := meta.RuleLimits[0], meta.RuleLimits[1]
	mid := (low + high) / 2

	switch meta.RulePrompt {
	case RulePromptFloatRange:
		inst.Params[ParamDefaultRule] = mid
	case RulePromptIntOrFade:
		inst.Params[ParamDefaultRule] = math.Trunc(mid)
		inst.Params[ParamMinRule] = low
		inst.Params[ParamMaxRule] = high
	}
}

// ruleLimits returns the rule limits of a ranged type in the instance's own
// units. Catalog limits are declared in the template's units.
func ruleLimits(inst *Instance, meta TypeMetadata) (float64, float64) {
	low, high := meta.RuleLimits[0], meta.RuleLimits[1]

	units, ok := inst.Units()
	templateUnits, _ := meta.ConfigTemplate[ParamUnits].(string) //nolint:errcheck // non-thermostat templates have no units
	if !ok || templateUnits == "" || units == templateUnits {
		return low, high
	}

	convLow, errLow := ConvertTemperature(low, templateUnits, units)
	convHigh, errHigh := ConvertTemperature(high, templateUnits, units)
	if errLow != nil || errHigh != nil {
		return low, high
	}
	return convLow, convHigh
}

// convertUnits returns a copy of inst with its rules converted to units.
func convertUnits(inst *Instance, from, to string) (*Instance, error) {
	next := inst.DeepCopy()

	if rule, ok := next.Params[ParamDefaultRule]; ok && rule != nil {
		converted, err := convertRuleValue(rule, from, to)
		if err != nil {
			return nil, err
		}
		next.Params[ParamDefaultRule] = converted
	}

	if schedule := next.Schedule(); schedule != nil {
		for when, rule := range schedule {
			converted, err := convertRuleValue(rule, from, to)
			if err != nil {
				return nil, err
			}
			schedule[when] = converted
		}
		next.Params[ParamSchedule] = schedule
	}

	next.Params[ParamUnits] = to
	return next, nil
}

func clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}

// Package config loads and validates the node config service configuration.
//
// Values are resolved in three layers: built-in defaults, then the YAML
// file, then NODECONFIG_* environment variables. Validate runs last.
//
// Secrets (MQTT password, InfluxDB token) should come from the environment
// rather than the file.
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("NODECONFIG_CONFIG"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Node.ID)
package config

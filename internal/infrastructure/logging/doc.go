// Package logging configures the hub's structured logger on log/slog.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Subsystems take a child logger from Component, and anything about one
// configuration entry logs through Entry so its domain and entry_id are
// searchable. MQTT passwords and InfluxDB tokens are never logged.
package logging

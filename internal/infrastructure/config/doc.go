// Package config loads the hub's YAML configuration.
//
// Values are layered: built-in defaults, then the file, then GRAYHUB_*
// environment variables (GRAYHUB_MQTT_PASSWORD, GRAYHUB_INFLUXDB_TOKEN and
// friends keep secrets out of the file). Validate reports every problem at
// once rather than the first.
//
// Each item under integrations is one configuration entry:
//
//	integrations:
//	  - domain: comelit
//	    entry_id: 01J0COMELIT
//	    title: Ground floor bridge
//	    enabled: true
//	    sdk:                       # optional supervised vendor SDK process
//	      command: /usr/libexec/grayhub/comelit-sdk
//	      env:
//	        COMELIT_PIN: "1234"
package config

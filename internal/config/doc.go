// Package config provides configuration for the signals command.
//
// The configuration is stored in signals.json. Every field is optional and
// can be overridden by an environment variable prefixed with SIGNALS_:
//
//	{
//	  "runtime": {"maxDepth": 100, "logLevel": "info", "logFormat": "text"},
//	  "loop":    {"queueSize": 256},
//	  "live": {
//	    "addr": "localhost:8080",
//	    "readTimeout": "60s",
//	    "heartbeatInterval": "30s",
//	    "sendQueueSize": 64,
//	    "allowedOrigins": ["https://example.com"]
//	  },
//	  "metrics": {"enabled": true, "path": "/metrics"},
//	  "tracing": {"enabled": false}
//	}
//
// For example SIGNALS_LIVE_ADDR=:9000 overrides live.addr.
//
// # Usage
//
//	cfg, err := config.Resolve(configFlag)
//	if err != nil {
//	    errors.Print(os.Stderr, err)
//	    os.Exit(1)
//	}
package config

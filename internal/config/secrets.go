package config

import "maps"

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Provider.APIKey)
	redact(&out.Weather.APIKey)
	redact(&out.Social.Token)
	redact(&out.Kalshi.APIKey)
	redact(&out.Operator.PrivateKey)
	redact(&out.Operator.KeyPassword)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// RPC URLs commonly embed provider keys in the path.
	out.Chain.RPCURLs = make(map[string]string, len(cfg.Chain.RPCURLs))
	for name, u := range cfg.Chain.RPCURLs {
		redact(&u)
		out.Chain.RPCURLs[name] = u
	}
	if len(cfg.Server.APIKeys) > 0 {
		out.Server.APIKeys = make([]string, len(cfg.Server.APIKeys))
		for i := range out.Server.APIKeys {
			out.Server.APIKeys[i] = redacted
		}
	}

	// Copy the remaining reference types so callers cannot mutate the
	// original through the redacted copy.
	out.Mobility.Capacity = maps.Clone(cfg.Mobility.Capacity)
	out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

package model

import "encoding/json"

// AppConfig is the part of config.json the server interprets. The
// document itself is stored and served as an opaque object.
type AppConfig struct {
	Flags   json.RawMessage
	Version json.RawMessage
	APIKeys []string
	Auth    AuthPolicy
	// HasAuth is true when config.json carries a truthy "auth" value.
	HasAuth bool
	Stripe  StripeSettings
}

// AuthPolicy is the config.json "auth" block.
type AuthPolicy struct {
	Enabled    *bool        `json:"enabled"`
	Salt       string       `json:"salt"`
	Iterations int          `json:"iterations"`
	Users      []ConfigUser `json:"users"`
}

// Disabled is true only when "enabled" is explicitly false.
func (p AuthPolicy) Disabled() bool {
	return p.Enabled != nil && !*p.Enabled
}

type ConfigUser struct {
	Username   string `json:"username"`
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
	Hash       string `json:"hash"`
}

// StripeSettings carries the payment provider price ids per top-up kind.
type StripeSettings struct {
	Prices map[string]string `json:"prices"`
}

// ParseAppConfig decodes each interpreted field independently so one
// malformed block does not hide the others.
func ParseAppConfig(data []byte) AppConfig {
	var cfg AppConfig
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return cfg
	}
	if v, ok := top["flags"]; ok && isObject(v) {
		cfg.Flags = v
	}
	cfg.Version = top["version"]

	var keys []any
	if json.Unmarshal(top["apiKeys"], &keys) == nil {
		for _, k := range keys {
			if s, ok := k.(string); ok && s != "" {
				cfg.APIKeys = append(cfg.APIKeys, s)
			}
		}
	}
	_ = json.Unmarshal(top["auth"], &cfg.Auth)
	cfg.HasAuth = truthy(top["auth"])
	_ = json.Unmarshal(top["stripe"], &cfg.Stripe)
	return cfg
}

// PublicView is the projection served to callers without the superadmin
// role. auth.enabled is false when there is no auth block at all, even
// though requests are still authenticated in that case.
func (c AppConfig) PublicView() map[string]any {
	flags := c.Flags
	if flags == nil {
		flags = json.RawMessage(`{}`)
	}
	view := map[string]any{
		"flags": flags,
		"auth":  map[string]bool{"enabled": c.HasAuth && !c.Auth.Disabled()},
	}
	if len(c.Version) > 0 {
		view["version"] = c.Version
	}
	return view
}

func isObject(raw json.RawMessage) bool {
	var m map[string]json.RawMessage
	return json.Unmarshal(raw, &m) == nil && m != nil
}

func truthy(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

// Package config fills env-tagged structs from the process environment.
//
// A .env file in the working directory is read once, before the first Load,
// without overriding variables that are already set. Each package declares its
// own Config type (pg.Config, redis.Config, automation.Config, ...) and the
// command wires them together:
//
//	var pgCfg pg.Config
//	if err := config.Load(&pgCfg); err != nil {
//		return err
//	}
package config

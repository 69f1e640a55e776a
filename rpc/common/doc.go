// Package common provides the configuration and logging shared by the cache
// server, the client and the CLI.
//
// Key Components:
//
//   - ServerConfig: transport, endpoint, timeout, persistence (AOF path and
//     replay buffer limit), metrics endpoint and logging settings of a server.
//     String renders it as a sectioned table for the startup banner.
//
//   - ClientConfig: transport, endpoints, timeout and retry count of a client.
//
//   - LoadConfigFile: reads a flat YAML file of option names to values. The
//     CLI feeds the values into viper as defaults, so the precedence is
//     flag defaults < config file < environment < explicit flags.
//
//   - Logger: a zerolog backed implementation of dragonboat's logger.ILogger.
//     Packages obtain named loggers with logger.GetLogger("name"), InitLoggers
//     installs the factory and sets the level of all of them. Every line
//     carries the logger name in the field "pkg".
package common

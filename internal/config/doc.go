// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file next to the config file, if present, is loaded into the process
// environment first; variables already set in the environment win.
package config

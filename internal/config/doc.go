// Package config provides the reconscan configuration: defaults, validation,
// the YAML configuration file and the XDG directories used for data.
package config

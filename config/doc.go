// Package config loads process-level configuration for the topicmesh command.
//
// Configuration is read from a YAML file and then overlaid with TOPICMESH_*
// environment variables. Library packages do not depend on it; they are
// configured through functional options, and this package only maps the
// loaded values onto those options.
package config

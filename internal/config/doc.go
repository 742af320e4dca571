// Package config provides configuration types and loading for flatdeb.
//
// # Configuration File
//
// The configuration is read from $XDG_CONFIG_HOME/flatdeb/config.toml
// unless --config names another file. Files ending in .yaml or .yml are
// decoded as YAML, anything else as TOML. A missing default file means
// "use the defaults"; a missing explicit file is an error.
//
//	build_area = "/srv/flatdeb"
//	suite = "stretch"
//	arch = "amd64"
//	ostree_mode = "archive-z2"
//
//	[remote]
//	host = "builder.example.com"
//	user = "deb"
//	identity_file = "/home/me/.ssh/id_builder"
//
//	[nspawn]
//	env = ["LC_ALL=C.UTF-8", "DEBIAN_FRONTEND=noninteractive"]
//
// # Defaults
//
// BuildArea defaults to $XDG_CACHE_HOME/flatdeb and Repo to the repo
// directory inside it. Unknown keys are rejected so that typos do not
// silently fall back to defaults.
//
// # Validation
//
// Load validates the result before returning it. Paths must be absolute,
// ostree_mode must be a mode ostree knows, and every nspawn env entry must
// have the form KEY=VALUE.
package config

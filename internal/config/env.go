package config

import "strings"

// DB_HOST overrides db.host and so on.
var envKeyReplacer = strings.NewReplacer(".", "_")

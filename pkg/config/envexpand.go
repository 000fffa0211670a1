package config

import "os"

// ExpandEnv expands ${VAR} and $VAR references in YAML content using the
// standard library, so secrets (DB DSNs, LLM endpoints) can live outside
// the checked-in config file. Missing variables expand to empty string;
// validation is expected to catch the resulting empty required fields.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

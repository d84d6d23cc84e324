// Package config loads docqa settings from YAML, .env files and DOCQA_*
// environment variables.
package config

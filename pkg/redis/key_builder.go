package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyTeam(name string, id uint64) string {
	return kb.BuildKey(fmt.Sprintf(KeyTeam, name, id))
}

func (kb *KeyBuilder) KeyTeamLock(name string, id uint64) string {
	return kb.BuildKey(fmt.Sprintf(KeyTeamLock, name, id))
}

func (kb *KeyBuilder) KeyTeamCache(name string, id uint64) string {
	return kb.BuildKey(fmt.Sprintf(KeyTeamCache, name, id))
}

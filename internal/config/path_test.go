package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv("DIRECTOR_CONFIG", "")

	assert.Equal(t, "", getConfigPath([]string{"director", "chat"}))
	assert.Equal(t, "a.yaml", getConfigPath([]string{"director", "--config", "a.yaml", "chat"}))
	assert.Equal(t, "b.yaml", getConfigPath([]string{"director", "-c", "b.yaml"}))
	assert.Equal(t, "c.yaml", getConfigPath([]string{"director", "--config=c.yaml"}))
	assert.Equal(t, "", getConfigPath([]string{"director", "--config"}))

	t.Setenv("DIRECTOR_CONFIG", "env.yaml")
	assert.Equal(t, "env.yaml", getConfigPath([]string{"director", "--config", "a.yaml"}))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "******xyz", mask("secretxyz"))
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleAllows(t *testing.T) {
	assert.True(t, RoleAdmin.Allows(RoleDeployer))
	assert.True(t, RoleDeployer.Allows(RoleDeployer))
	assert.True(t, RoleDeployer.Allows(RoleViewer))
	assert.False(t, RoleViewer.Allows(RoleDeployer))
	assert.False(t, Role("root").Allows(RoleViewer))
	assert.False(t, RoleAdmin.Allows(Role("")))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleViewer.Valid())
	assert.False(t, Role("").Valid())
}

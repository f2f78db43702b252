package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleRankOrder(t *testing.T) {
	assert := assert.New(t)

	order := []Role{RoleUser, RoleJunior, RoleAdmin, RoleOwner}
	for i := range order {
		for j := range order {
			assert.Equal(i < j, order[i].Rank() < order[j].Rank(), "%s vs %s", order[i], order[j])
		}
	}
	assert.Equal(0, Role("moderator").Rank())
	assert.Equal(0, Role("").Rank())
}

func TestParseRole(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		in  string
		out Role
	}{
		{in: "user", out: RoleUser},
		{in: "junior", out: RoleJunior},
		{in: " ADMIN ", out: RoleAdmin},
		{in: "owner", out: RoleUser},
		{in: "", out: RoleUser},
		{in: "superadmin", out: RoleUser},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, ParseRole(fix.in), fix.in)
	}
}

func TestTruncateNickname(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("Shelly", TruncateNickname("  Shelly "))
	long := strings.Repeat("ж", 70)
	assert.Equal(strings.Repeat("ж", MaxNicknameLength), TruncateNickname(long))
	assert.Equal("", TruncateNickname("   "))
}

func TestParseFirePoint(t *testing.T) {
	assert := assert.New(t)

	p, err := ParseFirePoint("08:10")
	assert.NoError(err)
	assert.Equal(FirePoint{Hour: 8, Minute: 10}, p)
	assert.Equal("08:10", p.String())

	for _, bad := range []string{"", "8", "24:00", "12:60", "ab:cd", "-1:10"} {
		_, err := ParseFirePoint(bad)
		assert.Error(err, bad)
	}
}

package registry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pulsehr/engine/rule"
)

func TestPackKeyLayout(t *testing.T) {
	c := &Client{namespace: "pulsehr"}

	assert.Equal(t, "/pulsehr/packs/", c.packPrefix())
	assert.Equal(t, "/pulsehr/packs/people-analytics", c.packKey("people-analytics"))
}

func TestNewClientRequiresEndpoints(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoints")
}

func TestNewTLSInfo(t *testing.T) {
	t.Run("disabled returns nil", func(t *testing.T) {
		info, err := newTLSInfo(nil)
		require.NoError(t, err)
		assert.Nil(t, info)

		info, err = newTLSInfo(&TLSConfig{Enabled: false, CertFile: "cert.pem"})
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("missing files rejected", func(t *testing.T) {
		cases := []TLSConfig{
			{Enabled: true, KeyFile: "k.pem", CAFile: "ca.pem"},
			{Enabled: true, CertFile: "c.pem", CAFile: "ca.pem"},
			{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem"},
		}
		for _, cfg := range cases {
			_, err := newTLSInfo(&cfg)
			assert.Error(t, err)
		}
	})

	t.Run("complete config accepted", func(t *testing.T) {
		info, err := newTLSInfo(&TLSConfig{
			Enabled:  true,
			CertFile: "cert.pem",
			KeyFile:  "key.pem",
			CAFile:   "ca.pem",
		})
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, "cert.pem", info.CertFile)
	})
}

// Packs travel through the registry as YAML; the document a consumer
// parses back must compile to the same rules the publisher stored.
func TestPackDocumentRoundTrip(t *testing.T) {
	pack := &rule.Pack{
		Name:    "people-analytics",
		Version: 1,
		Rules: []rule.PackRule{
			{
				ID:       "burnout-risk",
				Priority: 100,
				When: rule.ConditionDoc{
					Expr: `engagement == "low" && connected("belongs_to", "cohort")`,
				},
				Action:  rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.7},
				Explain: "Engagement is {engagement}",
			},
		},
	}
	_, err := pack.Compile()
	require.NoError(t, err)

	data, err := yaml.Marshal(pack)
	require.NoError(t, err)

	parsed, err := rule.ParsePack(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, pack, parsed)

	recompiled, err := parsed.Compile()
	require.NoError(t, err)
	original, err := pack.Compile()
	require.NoError(t, err)
	assert.Equal(t, original, recompiled)
}

func TestPutPackValidation(t *testing.T) {
	c := &Client{namespace: "pulsehr", closedChan: make(chan struct{})}

	t.Run("nil pack rejected", func(t *testing.T) {
		err := c.PutPack(context.Background(), nil)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})

	t.Run("unnamed pack rejected", func(t *testing.T) {
		err := c.PutPack(context.Background(), &rule.Pack{Version: 1})
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})

	t.Run("malformed expression rejected", func(t *testing.T) {
		err := c.PutPack(context.Background(), &rule.Pack{
			Name: "broken",
			Rules: []rule.PackRule{
				{ID: "r1", When: rule.ConditionDoc{Expr: "engagement =="}},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate pack broken")
	})
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageGroupValidate(t *testing.T) {
	t.Run("sequential with one stage", func(t *testing.T) {
		g := StageGroup{Name: "g", Mode: ModeSequential, Stages: []string{"a"}}
		assert.NoError(t, g.Validate())
	})

	t.Run("sequential with many stages rejected", func(t *testing.T) {
		g := StageGroup{Name: "g", Mode: ModeSequential, Stages: []string{"a", "b"}}
		assert.Error(t, g.Validate())
	})

	t.Run("parallel requires concurrency bound", func(t *testing.T) {
		g := StageGroup{Name: "g", Mode: ModeParallel, Stages: []string{"a", "b"}}
		assert.Error(t, g.Validate())

		g.MaxConcurrency = 2
		assert.NoError(t, g.Validate())
	})

	t.Run("negative stagger rejected", func(t *testing.T) {
		g := StageGroup{Name: "g", Mode: ModeParallel, Stages: []string{"a"}, MaxConcurrency: 1, Stagger: -time.Second}
		assert.Error(t, g.Validate())
	})

	t.Run("empty group rejected", func(t *testing.T) {
		g := StageGroup{Name: "g", Mode: ModeSequential}
		assert.Error(t, g.Validate())
	})
}

func TestPipelineConfigValidate(t *testing.T) {
	valid := PipelineConfig{
		Name: "p",
		Groups: []StageGroup{
			{Name: "one", Mode: ModeSequential, Stages: []string{"a"}},
			{Name: "two", Mode: ModeParallel, Stages: []string{"b", "c"}, MaxConcurrency: 2},
		},
	}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, []string{"a", "b", "c"}, valid.StageNames())

	t.Run("duplicate stage names rejected", func(t *testing.T) {
		dup := valid
		dup.Groups = append([]StageGroup(nil), valid.Groups...)
		dup.Groups = append(dup.Groups, StageGroup{Name: "three", Mode: ModeSequential, Stages: []string{"a"}})
		assert.Error(t, dup.Validate())
	})

	t.Run("no groups rejected", func(t *testing.T) {
		assert.Error(t, (&PipelineConfig{Name: "p"}).Validate())
	})
}

func TestTierTable(t *testing.T) {
	table := DefaultTierTable()
	require.NoError(t, table.Validate())

	t.Run("resolve known tier", func(t *testing.T) {
		m := table.Resolve(TierFast)
		assert.Equal(t, "gemini-2.5-flash", m.Model(RoleFlash))
		assert.Equal(t, "gemini-2.5-flash-lite", m.Model(RoleLite))
	})

	t.Run("unknown tier falls back to standard", func(t *testing.T) {
		assert.Equal(t, table[TierStandard], table.Resolve(Tier("bogus")))
	})

	t.Run("deep tier upgrades pro slot", func(t *testing.T) {
		assert.Equal(t, "gemini-3-pro-preview", table.Resolve(TierDeep).Model(RolePro))
	})

	t.Run("missing standard rejected", func(t *testing.T) {
		bad := TierTable{TierFast: table[TierFast]}
		assert.Error(t, bad.Validate())
	})

	t.Run("incomplete roles rejected", func(t *testing.T) {
		bad := TierTable{TierStandard: RoleModels{Lite: "x", Flash: "y"}}
		assert.Error(t, bad.Validate())
	})
}

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100, cfg.MinResumeLength)
	assert.Equal(t, 2*time.Second, cfg.ScoutStagger)
	assert.Equal(t, 2, cfg.ScoutConcurrency)
	assert.Equal(t, 2, cfg.HealRetries)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
}

func TestLoadEngineConfig(t *testing.T) {
	t.Run("overrides layer over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "engine.yaml")
		require.NoError(t, os.WriteFile(path, []byte("min_resume_length: 50\nscout_concurrency: 4\n"), 0o644))

		cfg, err := LoadEngineConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 50, cfg.MinResumeLength)
		assert.Equal(t, 4, cfg.ScoutConcurrency)
		// Untouched fields keep defaults.
		assert.Equal(t, 2, cfg.HealRetries)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "engine.yaml")
		require.NoError(t, os.WriteFile(path, []byte("min_resume_length: -1\n"), 0o644))

		_, err := LoadEngineConfig(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

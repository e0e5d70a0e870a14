package plugin_test

import (
	"testing"

	"github.com/blinklabs-io/civet/database/plugin"
	_ "github.com/blinklabs-io/civet/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/civet/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/civet/internal/config"
)

// These tests mutate global plugin state (the cmdlineOptions vars in the
// plugin subpackages), so writes that succeed stick to values matching
// the registered defaults.

func TestSetPluginOption(t *testing.T) {
	t.Run("string option", func(t *testing.T) {
		// An empty data-dir selects the in-memory sqlite store
		err := plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			config.DefaultMetadataPlugin,
			"data-dir",
			"",
		)
		if err != nil {
			t.Fatalf("unexpected error setting sqlite data-dir: %v", err)
		}
	})

	t.Run("uint option", func(t *testing.T) {
		err := plugin.SetPluginOption(
			plugin.PluginTypeBlob,
			config.DefaultBlobPlugin,
			"block-cache-size",
			uint64(805306368),
		)
		if err != nil {
			t.Fatalf("unexpected error setting badger block-cache-size: %v", err)
		}
	})

	t.Run("bool option", func(t *testing.T) {
		err := plugin.SetPluginOption(
			plugin.PluginTypeBlob,
			config.DefaultBlobPlugin,
			"gc",
			true,
		)
		if err != nil {
			t.Fatalf("unexpected error setting badger gc: %v", err)
		}
	})

	t.Run("wrong value type", func(t *testing.T) {
		err := plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			config.DefaultMetadataPlugin,
			"data-dir",
			123,
		)
		if err == nil {
			t.Fatal("expected type error setting sqlite data-dir with int")
		}
	})

	t.Run("unknown option is a no-op", func(t *testing.T) {
		err := plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			config.DefaultMetadataPlugin,
			"does-not-exist",
			"x",
		)
		if err != nil {
			t.Fatalf("unexpected error setting unknown option: %v", err)
		}
	})

	t.Run("unknown plugin", func(t *testing.T) {
		err := plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			"nonexistent",
			"data-dir",
			t.TempDir(),
		)
		if err == nil {
			t.Fatal("expected error setting option for nonexistent plugin")
		}
	})
}

func TestProcessEnvVars(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		t.Setenv("CIVET_BLOB_BADGER_GC", "true")
		if err := plugin.ProcessEnvVars(); err != nil {
			t.Fatalf("unexpected error processing env vars: %v", err)
		}
	})

	t.Run("invalid bool value", func(t *testing.T) {
		t.Setenv("CIVET_BLOB_BADGER_GC", "notabool")
		if err := plugin.ProcessEnvVars(); err == nil {
			t.Fatal("expected error for non-boolean gc value")
		}
	})

	t.Run("invalid uint value", func(t *testing.T) {
		t.Setenv("CIVET_BLOB_BADGER_BLOCK_CACHE_SIZE", "many")
		if err := plugin.ProcessEnvVars(); err == nil {
			t.Fatal("expected error for non-numeric block-cache-size value")
		}
	})
}

func TestProcessConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		pluginConfig := map[string]map[string]map[string]any{
			"blob": {
				config.DefaultBlobPlugin: {
					"gc": true,
				},
			},
		}
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			t.Fatalf("unexpected error processing config: %v", err)
		}
	})

	t.Run("unknown plugin type", func(t *testing.T) {
		pluginConfig := map[string]map[string]map[string]any{
			"wormhole": {},
		}
		if err := plugin.ProcessConfig(pluginConfig); err == nil {
			t.Fatal("expected error for unknown plugin type")
		}
	})

	t.Run("unknown plugin name", func(t *testing.T) {
		pluginConfig := map[string]map[string]map[string]any{
			"blob": {
				"nonexistent": {
					"gc": true,
				},
			},
		}
		if err := plugin.ProcessConfig(pluginConfig); err == nil {
			t.Fatal("expected error for unknown plugin name")
		}
	})
}

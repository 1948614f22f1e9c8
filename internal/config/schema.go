package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// 结构化校验在 mapstructure 解码之前进行,尽早拒绝类型错误的配置,
// 比如 mode 写成数字、risk 段写成数组,或顶层出现拼错的段名。
const configSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "mode": {"type": "string", "enum": ["monitor", "paper", "live"]},
    "starting_balance": {"type": "number"},
    "poll_interval": {"type": "integer"},
    "snapshot_interval": {"type": "integer"},
    "app": {"type": "object"},
    "markets": {
      "type": "object",
      "properties": {
        "tag": {"type": "string"},
        "limit": {"type": "integer"},
        "focus": {"type": "array", "items": {"type": "string"}}
      }
    },
    "risk": {
      "type": "object",
      "properties": {
        "max_position_size": {"type": "number"},
        "max_daily_loss": {"type": "number"},
        "max_open_orders": {"type": "integer"}
      }
    },
    "aggregation": {
      "type": "object",
      "properties": {
        "min_confidence": {"type": "number"},
        "min_strategies": {"type": "integer"}
      }
    },
    "position_sizing": {
      "type": "object",
      "properties": {
        "method": {"type": "string", "enum": ["fixed", "kelly", "fractional_kelly"]},
        "kelly_fraction": {"type": "number"},
        "max_bet_pct": {"type": "number"}
      }
    },
    "conditional_orders": {"type": "object"},
    "exit_manager": {"type": "object"},
    "strategies": {"type": "object"},
    "data": {"type": "object"},
    "backtest": {"type": "object"},
    "alerts": {"type": "object"},
    "live": {"type": "object"}
  }
}`

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.schema.json", strings.NewReader(configSchema)); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile("config.schema.json")
	})
	return schemaCompiled, schemaErr
}

func validateSchema(settings map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema failed: %w", err)
	}
	// 经 JSON 往返将 viper 的松散类型归一化为 jsonschema 可识别的形式
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings failed: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dump 渲染生效配置的 YAML 文本,用于启动摘要与审计记录。
// 实盘凭证不参与序列化。
func Dump(cfg *Config) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("nil config")
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("dump config failed: %w", err)
	}
	return string(raw), nil
}

// Diff 返回两份配置之间发生变化的叶子路径,按字典序排列。
func Diff(oldCfg, newCfg *Config) ([]string, error) {
	oldMap, err := toLeafMap(oldCfg)
	if err != nil {
		return nil, err
	}
	newMap, err := toLeafMap(newCfg)
	if err != nil {
		return nil, err
	}
	changed := make(map[string]struct{})
	for path, val := range oldMap {
		if nv, ok := newMap[path]; !ok || nv != val {
			changed[path] = struct{}{}
		}
	}
	for path := range newMap {
		if _, ok := oldMap[path]; !ok {
			changed[path] = struct{}{}
		}
	}
	out := make([]string, 0, len(changed))
	for path := range changed {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

func toLeafMap(cfg *Config) (map[string]string, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flattenLeaves("", tree, out)
	return out, nil
}

func flattenLeaves(prefix string, node any, dest map[string]string) {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenLeaves(next, v, dest)
		}
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		dest[prefix] = "[" + strings.Join(parts, ",") + "]"
	default:
		dest[prefix] = fmt.Sprintf("%v", val)
	}
}

package config

import (
	"fmt"
	"os"

	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/parser"
	"github.com/KorAP/Koral-Rewriter/rewrite"
	"github.com/KorAP/Koral-Rewriter/rules"
	"github.com/KorAP/Koral-Rewriter/types"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort     = 5726
	defaultLogLevel = "warn"
)

// Rule kinds
const (
	KindExpand     = "expand"
	KindSubstitute = "substitute"
)

// RuleConfig represents a single rewrite rule in the configuration
type RuleConfig struct {
	ID        string   `yaml:"id"`
	Kind      string   `yaml:"kind"`
	Target    string   `yaml:"target"`
	Class     string   `yaml:"class,omitempty"`
	Constants []string `yaml:"constants,omitempty"`
}

// RuleList represents a list of rewrite rules with metadata
type RuleList struct {
	ID          string       `yaml:"id"`
	Description string       `yaml:"desc,omitempty"`
	Rules       []RuleConfig `yaml:"rules"`
}

// TypeDecl declares the supertypes of a class or interface
type TypeDecl struct {
	Name    string   `yaml:"name"`
	Extends []string `yaml:"extends,omitempty"`
}

// RewriteConfig represents the root configuration
type RewriteConfig struct {
	Port      int        `yaml:"port,omitempty"`
	LogLevel  string     `yaml:"loglevel,omitempty"`
	Hierarchy []TypeDecl `yaml:"hierarchy,omitempty"`
	Lists     []RuleList `yaml:"lists,omitempty"`
}

// LoadFromSources loads configuration from multiple sources and merges them:
// - A main configuration file (optional) containing global settings, the
// type hierarchy and lists
// - Individual rule files (optional) containing single rule lists each
// At least one list must be provided
func LoadFromSources(configFile string, ruleFiles []string) (*RewriteConfig, error) {
	var allLists []RuleList
	var globalConfig RewriteConfig

	seenIDs := make(map[string]bool)

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}

		if len(data) == 0 {
			return nil, fmt.Errorf("EOF: config file '%s' is empty", configFile)
		}

		if err := yaml.Unmarshal(data, &globalConfig); err == nil {
			for _, list := range globalConfig.Lists {
				if seenIDs[list.ID] {
					return nil, fmt.Errorf("duplicate rule list ID found: %s", list.ID)
				}
				seenIDs[list.ID] = true
			}
			allLists = append(allLists, globalConfig.Lists...)
		} else {
			// A bare sequence of lists is accepted as well
			var lists []RuleList
			if err := yaml.Unmarshal(data, &lists); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config file '%s': %w", configFile, err)
			}

			for _, list := range lists {
				if seenIDs[list.ID] {
					return nil, fmt.Errorf("duplicate rule list ID found: %s", list.ID)
				}
				seenIDs[list.ID] = true
			}
			allLists = append(allLists, lists...)
			globalConfig.Lists = nil
		}
	}

	for _, file := range ruleFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("Failed to read rule file")
			continue
		}

		if len(data) == 0 {
			log.Error().Str("file", file).Msg("EOF: rule file is empty")
			continue
		}

		var list RuleList
		if err := yaml.Unmarshal(data, &list); err != nil {
			log.Error().Err(err).Str("file", file).Msg("Failed to parse YAML rule file")
			continue
		}

		if seenIDs[list.ID] {
			log.Error().Str("file", file).Str("list-id", list.ID).Msg("Duplicate rule list ID found")
			continue
		}
		seenIDs[list.ID] = true
		allLists = append(allLists, list)
	}

	if len(allLists) == 0 {
		return nil, fmt.Errorf("no rule lists found: provide either a config file (-c) with lists or rule files (-r)")
	}

	if err := validateRuleLists(allLists); err != nil {
		return nil, err
	}

	result := &RewriteConfig{
		Port:      globalConfig.Port,
		LogLevel:  globalConfig.LogLevel,
		Hierarchy: globalConfig.Hierarchy,
		Lists:     allLists,
	}

	ApplyDefaults(result)

	return result, nil
}

// ApplyDefaults sets default values for configuration fields if they are empty
func ApplyDefaults(config *RewriteConfig) {
	if config.LogLevel == "" {
		config.LogLevel = defaultLogLevel
	}
	if config.Port == 0 {
		config.Port = defaultPort
	}
}

// validateRuleLists checks the shape of every list; rule strings are
// checked later by ParseRules
func validateRuleLists(lists []RuleList) error {
	for i, list := range lists {
		if list.ID == "" {
			return fmt.Errorf("rule list at index %d is missing an ID", i)
		}

		if len(list.Rules) == 0 {
			return fmt.Errorf("rule list '%s' has no rules", list.ID)
		}

		for j, rule := range list.Rules {
			if rule.Target == "" {
				return fmt.Errorf("rule list '%s' rule at index %d has no target", list.ID, j)
			}
			switch rule.Kind {
			case KindExpand:
			case KindSubstitute:
				if rule.Class == "" {
					return fmt.Errorf("rule list '%s' rule at index %d has no constant class", list.ID, j)
				}
				if len(rule.Constants) == 0 {
					return fmt.Errorf("rule list '%s' rule at index %d has no constants", list.ID, j)
				}
			default:
				return fmt.Errorf("rule list '%s' rule at index %d has unknown kind '%s'", list.ID, j, rule.Kind)
			}
		}
	}
	return nil
}

// BuildHierarchy creates the type hierarchy declared in the configuration
func (config *RewriteConfig) BuildHierarchy() (*types.Hierarchy, error) {
	h := types.NewHierarchy()
	for i, decl := range config.Hierarchy {
		if err := h.Declare(decl.Name, decl.Extends...); err != nil {
			return nil, fmt.Errorf("hierarchy entry %d: %w", i, err)
		}
	}
	return h, nil
}

// ParseRules parses all rules in a list, in declaration order
func (list *RuleList) ParseRules(oracle types.Oracle) ([]rules.Rule, error) {
	ruleParser, err := parser.NewRuleParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create rule parser: %w", err)
	}

	results := make([]rules.Rule, len(list.Rules))
	for i, rc := range list.Rules {
		id := rc.ID
		if id == "" {
			id = fmt.Sprintf("%s#%d", list.ID, i)
		}

		target, err := ruleParser.ParseTarget(rc.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to parse target of rule %d in list '%s': %w", i, list.ID, err)
		}

		var rule rules.Rule
		switch rc.Kind {
		case KindExpand:
			if target.Kind != ast.MethodCall {
				return nil, fmt.Errorf("rule %d in list '%s': expand rules need a method target, got '%s'", i, list.ID, target)
			}
			rule, err = rules.NewCollectionToOrRule(id, target.Class, target.Member, target.Position, oracle)
		case KindSubstitute:
			var constants rewrite.ConstantMap
			constants, err = parseConstants(ruleParser, rc.Constants)
			if err != nil {
				return nil, fmt.Errorf("failed to parse constants of rule %d in list '%s': %w", i, list.ID, err)
			}
			rule, err = rules.NewConstantRule(id, *target, rc.Class, constants, oracle)
		default:
			err = fmt.Errorf("unknown kind '%s'", rc.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build rule %d in list '%s': %w", i, list.ID, err)
		}
		results[i] = rule
	}

	return results, nil
}

func parseConstants(ruleParser *parser.RuleParser, entries []string) (rewrite.ConstantMap, error) {
	constants := make(rewrite.ConstantMap, len(entries))
	for _, entry := range entries {
		raw, name, err := ruleParser.ParseConstant(entry)
		if err != nil {
			return nil, err
		}
		key := raw.Key()
		if _, dup := constants[key]; dup {
			return nil, fmt.Errorf("duplicate constant key %s", key)
		}
		constants[key] = name
	}
	return constants, nil
}

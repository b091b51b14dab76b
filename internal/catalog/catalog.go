// Package catalog loads the product list and the per-store selection rules.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadProducts reads the product catalog at path. A missing or malformed file
// yields an empty catalog; records failing validation are skipped. Products
// sharing a product_id receive the group's target price.
func LoadProducts(path string, logger *zap.Logger) []monitor.Product {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("catalog")

	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("product catalog not found, nothing to monitor", zap.String("path", path))
		return nil
	}
	if err != nil {
		logger.Warn("product catalog unreadable, nothing to monitor", zap.String("path", path), zap.Error(err))
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("product catalog is malformed, nothing to monitor", zap.String("path", path), zap.Error(err))
		return nil
	}

	products := make([]monitor.Product, 0, len(raw))
	for i, rec := range raw {
		var p monitor.Product
		if err := json.Unmarshal(rec, &p); err != nil {
			logger.Warn("skipping undecodable product", zap.Int("index", i), zap.Error(err))
			continue
		}
		if err := validate.Struct(p); err != nil {
			logger.Warn("skipping invalid product",
				zap.Int("index", i),
				zap.String("name", p.Name),
				zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return ApplyGroupTargets(products)
}

// ApplyGroupTargets gives every product with a product_id the first target
// price found in its group, in catalog order. Products without a group, or
// whose group has no target, keep their own.
func ApplyGroupTargets(products []monitor.Product) []monitor.Product {
	targets := make(map[string]float64)
	for _, p := range products {
		if p.ProductID == "" || p.TargetPrice == nil {
			continue
		}
		if _, seen := targets[p.ProductID]; !seen {
			targets[p.ProductID] = *p.TargetPrice
		}
	}

	out := make([]monitor.Product, len(products))
	for i, p := range products {
		if target, ok := targets[p.ProductID]; ok && p.ProductID != "" {
			t := target
			p.TargetPrice = &t
		}
		out[i] = p
	}
	return out
}

// LoadRules reads the store rules at path. Any failure is returned: the
// monitor cannot run without them.
func LoadRules(path string) (monitor.Rules, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store rules: %w", err)
	}
	var rules monitor.Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decode store rules %s: %w", path, err)
	}
	if rules == nil {
		rules = monitor.Rules{}
	}
	return rules, nil
}

package config

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/yarnsim/internal/dynamo"
)

// HCL scenarios use the YAML field names. Sections are blocks, vectors may
// be written either as blocks or as object attributes:
//
//	scene = "guide_pull"
//	simulation {
//	  contact_model = "SMC"
//	  dt            = 0.0005
//	  gravity       = { x = 0, y = -9.81, z = 0 }
//	}
//
// The HCL body is evaluated to a cty object, marshalled to JSON and decoded
// with the YAML decoder, so both formats share one set of struct tags.

func decodeHCL(src []byte, filename string, into *Scenario) error {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return fmt.Errorf("%w: %s", dynamo.ErrInvalidConfig, diags.Error())
	}
	val, diags := bodyValue(file.Body.(*hclsyntax.Body))
	if diags.HasErrors() {
		return fmt.Errorf("%w: %s", dynamo.ErrInvalidConfig, diags.Error())
	}
	data, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", dynamo.ErrInvalidConfig, filename, err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%w: %s: %v", dynamo.ErrInvalidConfig, filename, err)
	}
	return nil
}

func bodyValue(body *hclsyntax.Body) (cty.Value, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	vals := make(map[string]cty.Value, len(body.Attributes)+len(body.Blocks))

	for name, attr := range body.Attributes {
		v, d := attr.Expr.Value(nil)
		diags = append(diags, d...)
		// null keeps the default
		if d.HasErrors() || v.IsNull() {
			continue
		}
		vals[name] = v
	}
	for _, blk := range body.Blocks {
		if len(blk.Labels) > 0 {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unexpected block label",
				Detail:   fmt.Sprintf("Block %q takes no labels.", blk.Type),
				Subject:  blk.LabelRanges[0].Ptr(),
			})
			continue
		}
		if _, dup := vals[blk.Type]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate section",
				Detail:   fmt.Sprintf("%q is set more than once.", blk.Type),
				Subject:  blk.TypeRange.Ptr(),
			})
			continue
		}
		v, d := bodyValue(blk.Body)
		diags = append(diags, d...)
		vals[blk.Type] = v
	}
	return cty.ObjectVal(vals), diags
}

// encodeHCL writes cfg with one block per section, in struct field order.
func encodeHCL(cfg *Scenario) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, err
	}
	f := hclwrite.NewEmptyFile()
	if err := writeMapping(f.Body(), &doc); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

func writeMapping(body *hclwrite.Body, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("hcl: expected a mapping, got node kind %d", node.Kind)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if val.Tag == "!!null" {
			continue
		}
		if val.Kind == yaml.MappingNode {
			if err := writeMapping(body.AppendNewBlock(key, nil).Body(), val); err != nil {
				return err
			}
			continue
		}
		v, err := scalarValue(val)
		if err != nil {
			return fmt.Errorf("hcl: %s: %w", key, err)
		}
		body.SetAttributeValue(key, v)
	}
	return nil
}

func scalarValue(n *yaml.Node) (cty.Value, error) {
	switch n.Tag {
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 10, 64)
		return cty.NumberIntVal(i), err
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		return cty.NumberFloatVal(f), err
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		return cty.BoolVal(b), err
	case "!!str":
		return cty.StringVal(n.Value), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported value %q (%s)", n.Value, n.Tag)
}

package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// templateFile is the HCL schema of a template file:
//
//	flow "lesson" {
//	  keywords = ["lesson", "plan"]
//
//	  step "gen" {
//	    action       = "generate_lesson_plan"
//	    input_option = "lesson_input"
//	    checkpoint   = true
//	  }
//
//	  step "render" {
//	    action     = "render_lesson_markdown"
//	    depends_on = ["gen"]
//	    input      = { plan = gen.result }
//	  }
//	}
//
// Inside input, <step>.result evaluates to the placeholder of that step.
type templateFile struct {
	Flows []*flowBlock `hcl:"flow,block"`
}

type flowBlock struct {
	Name     string       `hcl:"name,label"`
	Keywords []string     `hcl:"keywords,optional"`
	Default  bool         `hcl:"default,optional"`
	Steps    []*stepBlock `hcl:"step,block"`
}

type stepBlock struct {
	Key         string         `hcl:"key,label"`
	Action      string         `hcl:"action"`
	DependsOn   []string       `hcl:"depends_on,optional"`
	Checkpoint  bool           `hcl:"checkpoint,optional"`
	InputOption string         `hcl:"input_option,optional"`
	MergeOption string         `hcl:"merge_option,optional"`
	Input       hcl.Expression `hcl:"input,optional"`
}

// LoadTemplates reads templates from an HCL file, or from every *.hcl file
// of a directory in lexical order.
func LoadTemplates(path string) ([]Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat templates path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.hcl"))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
	}

	parser := hclparse.NewParser()
	var templates []Template
	for _, file := range files {
		ts, err := decodeTemplateFile(parser, file)
		if err != nil {
			return nil, err
		}
		templates = append(templates, ts...)
	}

	return templates, nil
}

// ParseTemplates decodes templates from HCL source.
func ParseTemplates(src []byte, filename string) ([]Template, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}
	return decodeTemplates(file.Body, filename)
}

func decodeTemplateFile(parser *hclparse.Parser, filename string) ([]Template, error) {
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}
	return decodeTemplates(file.Body, filename)
}

func decodeTemplates(body hcl.Body, filename string) ([]Template, error) {
	var config templateFile
	if diags := gohcl.DecodeBody(body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}

	templates := make([]Template, 0, len(config.Flows))
	for _, flow := range config.Flows {
		t, err := flow.template()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		templates = append(templates, t)
	}

	return templates, nil
}

func (f *flowBlock) template() (Template, error) {
	// Every step key is a variable whose result attribute is its placeholder.
	vars := make(map[string]cty.Value, len(f.Steps))
	for _, step := range f.Steps {
		vars[step.Key] = cty.ObjectVal(map[string]cty.Value{
			"result": cty.StringVal("${" + step.Key + ".result}"),
		})
	}
	evalCtx := &hcl.EvalContext{Variables: vars}

	t := Template{
		Name:     f.Name,
		Keywords: f.Keywords,
		Default:  f.Default,
		Steps:    make([]StepTemplate, 0, len(f.Steps)),
	}

	for _, step := range f.Steps {
		st := StepTemplate{
			Key:         step.Key,
			Action:      step.Action,
			InputOption: step.InputOption,
			MergeOption: step.MergeOption,
			DependsOn:   step.DependsOn,
			Checkpoint:  step.Checkpoint,
		}

		if step.Input != nil {
			val, diags := step.Input.Value(evalCtx)
			if diags.HasErrors() {
				return Template{}, fmt.Errorf("flow %s, step %s: %s", f.Name, step.Key, diags.Error())
			}
			native, err := ctyToNative(val)
			if err != nil {
				return Template{}, fmt.Errorf("flow %s, step %s: %w", f.Name, step.Key, err)
			}
			switch input := native.(type) {
			case nil:
			case map[string]any:
				st.Input = input
			default:
				return Template{}, fmt.Errorf("flow %s, step %s: input must be an object", f.Name, step.Key)
			}
		}

		t.Steps = append(t.Steps, st)
	}

	return t, nil
}

// ctyToNative converts a cty value into the JSON-compatible tree used for
// task inputs. Whole numbers become int.
func ctyToNative(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

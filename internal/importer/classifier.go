package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kha159-create/alsani-cockpit/internal/llm"
)

// PreviewRows is how many data rows the classifier sees.
const PreviewRows = 3

// classificationSchema is what a usable classifier reply looks like.
const classificationSchema = `{
	"type": "object",
	"required": ["fileType"],
	"properties": {
		"fileType": {"type": "string", "minLength": 1},
		"format": {"type": ["string", "null"]},
		"headerMap": {
			"type": "object",
			"additionalProperties": {"type": ["string", "null"]}
		}
	}
}`

// Preview is the part of an upload shown to the classifier.
type Preview struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// NewPreview takes the header row and up to PreviewRows data rows.
func NewPreview(headers []string, rows []Row) Preview {
	p := Preview{Headers: headers}
	for i, row := range rows {
		if i == PreviewRows {
			break
		}
		vals := make([]any, len(headers))
		for j, h := range headers {
			vals[j] = row[h]
		}
		p.Rows = append(p.Rows, vals)
	}
	return p
}

// HeadersOf collects the column names used by rows, sorted. It is for
// callers that have lost the sheet's column order.
func HeadersOf(rows []Row) []string {
	seen := map[string]bool{}
	var headers []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)
	return headers
}

// Text renders the preview for the prompt.
func (p Preview) Text() string {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Sprint(p.Headers)
	}
	return string(raw)
}

// Classification is the classifier's verdict on an upload.
type Classification struct {
	Shape     FileShape `json:"fileType"`
	Layout    Layout    `json:"format"`
	HeaderMap HeaderMap `json:"headerMap"`
}

// Classifier asks a text model what kind of file an upload is.
type Classifier struct {
	gen     llm.Generator
	prompts *llm.Prompts
	schema  *jsonschema.Schema
}

// NewClassifier compiles the reply schema once.
func NewClassifier(gen llm.Generator, prompts *llm.Prompts) (*Classifier, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("classification.json", strings.NewReader(classificationSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("classification.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Classifier{gen: gen, prompts: prompts, schema: schema}, nil
}

type classificationReply struct {
	FileType  string             `json:"fileType"`
	Format    *string            `json:"format"`
	HeaderMap map[string]*string `json:"headerMap"`
}

// Classify makes exactly one model call. Every failure is a
// *ClassificationError.
func (c *Classifier) Classify(ctx context.Context, preview Preview) (Classification, error) {
	prompt, err := c.prompts.Render(llm.PromptClassify, map[string]any{
		"shapes":  shapeCatalog(),
		"preview": preview.Text(),
	})
	if err != nil {
		return Classification{}, &ClassificationError{Msg: "could not build prompt", Err: err}
	}

	req := llm.Prompt(prompt)
	req.JSON = true
	reply, err := c.gen.Generate(ctx, req)
	if err != nil {
		return Classification{}, &ClassificationError{Msg: "classifier call failed", Err: err}
	}
	return c.parse(reply)
}

func (c *Classifier) parse(reply string) (Classification, error) {
	raw, ok := llm.ExtractJSONObject(reply)
	if !ok {
		return Classification{}, &ClassificationError{Msg: "could not recognize file format"}
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Classification{}, &ClassificationError{Msg: "could not recognize file format", Err: err}
	}
	if err := c.schema.Validate(doc); err != nil {
		return Classification{}, &ClassificationError{Msg: "could not recognize file format", Err: err}
	}

	var r classificationReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Classification{}, &ClassificationError{Msg: "could not recognize file format", Err: err}
	}
	shape, err := ParseShape(r.FileType)
	if err != nil {
		return Classification{}, &ClassificationError{Msg: "could not recognize file format", Err: err}
	}

	out := Classification{Shape: shape, HeaderMap: HeaderMap{}}
	if shape == ShapeEmployeeSales {
		format := ""
		if r.Format != nil {
			format = *r.Format
		}
		out.Layout = parseLayout(format)
	}
	for canonical, col := range r.HeaderMap {
		if col != nil && strings.TrimSpace(*col) != "" {
			out.HeaderMap[Field(canonical)] = strings.TrimSpace(*col)
		}
	}
	return out, nil
}

func shapeCatalog() []map[string]any {
	out := make([]map[string]any, 0, len(Shapes))
	for _, s := range Shapes {
		out = append(out, map[string]any{"name": s.String(), "headers": Headers(s)})
	}
	return out
}

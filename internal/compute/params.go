package compute

import (
	"fmt"
	"strings"

	"github.com/glintql/dispatch-api/internal/datasource"
)

// DefaultJobClass is the entry point of the one-shot batch job program.
const DefaultJobClass = "org.apache.spark.sql.GlintJob"

type confEntry struct {
	key   string
	value string
}

// SubmitParamsBuilder assembles the submit-parameter string handed to the
// compute service. Conf entries keep insertion order so the produced string
// is deterministic.
type SubmitParamsBuilder struct {
	className string
	conf      []confEntry
	extra     string
}

func NewSubmitParamsBuilder() *SubmitParamsBuilder {
	return &SubmitParamsBuilder{className: DefaultJobClass}
}

func (b *SubmitParamsBuilder) ClassName(name string) *SubmitParamsBuilder {
	b.className = name
	return b
}

func (b *SubmitParamsBuilder) Conf(key, value string) *SubmitParamsBuilder {
	b.conf = append(b.conf, confEntry{key: key, value: value})
	return b
}

// Datasource stamps the datasource identity and its connector properties onto
// the submission.
func (b *SubmitParamsBuilder) Datasource(meta datasource.Metadata) *SubmitParamsBuilder {
	b.Conf("spark.glint.datasource.name", meta.Name)
	b.Conf("spark.glint.datasource.connector", meta.Connector)
	b.Conf("spark.glint.result.location", meta.ResultLocation)
	for _, key := range meta.PropertyKeys() {
		b.Conf("spark.glint.datasource."+key, meta.Properties[key])
	}
	return b
}

// StructuredStreaming marks the job as a continuous streaming run. Streaming
// jobs never finish on their own; pollers learn their outcome from result
// documents instead.
func (b *SubmitParamsBuilder) StructuredStreaming(streaming bool) *SubmitParamsBuilder {
	if streaming {
		b.Conf("spark.glint.job.type", "streaming")
	}
	return b
}

// ExtraParameters appends caller-supplied parameters verbatim at the end.
func (b *SubmitParamsBuilder) ExtraParameters(params string) *SubmitParamsBuilder {
	b.extra = strings.TrimSpace(params)
	return b
}

func (b *SubmitParamsBuilder) Build() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--class %s", b.className)
	for _, entry := range b.conf {
		fmt.Fprintf(&sb, " --conf %s=%s", entry.key, entry.value)
	}
	if b.extra != "" {
		sb.WriteString(" ")
		sb.WriteString(b.extra)
	}
	return sb.String()
}

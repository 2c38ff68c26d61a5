package dsl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgcudahy/sos/internal/eval"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	evaluator, err := eval.NewCELEvaluator()
	require.NoError(t, err)
	return NewParser(evaluator)
}

func TestParser_GlobalAssignmentAndSection(t *testing.T) {
	p := newTestParser(t)
	script := "VERSION = '1.0'\n\n[align_10]\ninput: 'a.fastq'\noutput: 'a.bam'\nrun('bwa mem a.fastq > a.bam')\n"

	res, err := p.Parse(script, "<string>")
	require.NoError(t, err)
	require.Len(t, res.Sections, 2)

	global := res.Sections[0]
	require.True(t, global.IsGlobal)
	require.Len(t, global.Assignments, 1)
	require.Equal(t, "VERSION", global.Assignments[0].Key)

	step := res.Sections[1]
	require.Equal(t, "align", step.Names[0].Name)
	require.NotNil(t, step.Names[0].Index)
	require.Equal(t, 10, *step.Names[0].Index)
	require.Len(t, step.Directives, 2)
	require.Equal(t, "input", step.Directives[0].Name)
	require.Len(t, step.Statements, 1)
}

func TestParser_MultiLineDirectiveWithTrailingComma(t *testing.T) {
	p := newTestParser(t)
	script := "[merge_20]\ninput: 'a.bam',\n    'b.bam'\nrun('samtools merge')\n"

	res, err := p.Parse(script, "<string>")
	require.NoError(t, err)
	require.Len(t, res.Sections, 1)
	step := res.Sections[0]
	require.Len(t, step.Directives, 1)
	require.Contains(t, step.Directives[0].Value, "'b.bam'")
}

func TestParser_SectionOptions(t *testing.T) {
	p := newTestParser(t)
	script := "[call_30: skip, sigil='<% %>']\ndepends: 'a.bam'\nrun('call variants')\n"

	res, err := p.Parse(script, "<string>")
	require.NoError(t, err)
	step := res.Sections[0]
	require.Contains(t, step.Options, "skip")
	require.Contains(t, step.Options, "sigil")
	require.Equal(t, "'<% %>'", step.Options["sigil"])
}

func TestParser_AuxiliarySectionHasNoIndex(t *testing.T) {
	p := newTestParser(t)
	script := "[bam_index]\ninput: 'a.bam'\noutput: 'a.bam.bai'\nrun('samtools index a.bam')\n"

	res, err := p.Parse(script, "<string>")
	require.NoError(t, err)
	step := res.Sections[0]
	require.Nil(t, step.Names[0].Index)
}

func TestParser_ParametersSection(t *testing.T) {
	p := newTestParser(t)
	script := "[parameters]\n# number of threads\nthreads = 4\nsample = 'test'\n"

	res, err := p.Parse(script, "<string>")
	require.NoError(t, err)
	require.Len(t, res.Sections, 1)
	params := res.Sections[0]
	require.True(t, params.IsParameters)
	require.Len(t, params.Parameters, 2)
	require.Equal(t, "threads", params.Parameters[0].Name)
	require.Equal(t, "4", params.Parameters[0].Default)
	require.Contains(t, params.Parameters[0].Comment, "number of threads")
}

func TestParser_DirectiveOutsideStepIsError(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("input: 'a.txt'\n", "<string>")
	require.Error(t, err)
	var pe *ParsingError
	require.ErrorAs(t, err, &pe)
	require.True(t, pe.HasErrors())
}

func TestParser_ActionBeforeSectionIsError(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("run('echo hi')\n", "<string>")
	require.Error(t, err)
}

func TestParser_FormatHeader(t *testing.T) {
	p := newTestParser(t)
	res, err := p.Parse("#fileformat=SOS1.0\n[default_1]\nrun('noop')\n", "<string>")
	require.NoError(t, err)
	require.Equal(t, "1.0", res.FormatVersion)
}

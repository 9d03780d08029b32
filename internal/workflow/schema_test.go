package workflow

import (
	"testing"

	"naktender/internal/utils"
	"naktender/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestValidateGuaranteePayload(t *testing.T) {
	valid := `{"guarantees":[{"type":"BANK_GUARANTEE","number":"123","serial":"A-1","issueDate":"2025-01-01","expiryDate":"2025-06-01","amount":5000000}]}`

	out, err := ValidateDocumentPayload(types.DocumentKindFinancialGuarantee, []byte(valid), false)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"BANK_GUARANTEE"`)

	_, err = ValidateDocumentPayload(types.DocumentKindFinancialGuarantee, []byte(`{"guarantees":[{"number":"1","issueDate":"2025-01-01","expiryDate":"2025-06-01","amount":1}]}`), false)
	assert.Contains(t, fieldsOf(t, err), "guarantees[0].type")

	_, err = ValidateDocumentPayload(types.DocumentKindFinancialGuarantee, []byte(`{"guarantees":[{"type":"CHEQUE","number":"1","issueDate":"2025-06-01","expiryDate":"2025-01-01","amount":1}]}`), false)
	assert.Equal(t, "must be after the issue date", fieldsOf(t, err)["guarantees[0].expiryDate"])

	_, err = ValidateDocumentPayload(types.DocumentKindFinancialGuarantee, nil, false)
	assert.Contains(t, fieldsOf(t, err), "guarantees")

	_, err = ValidateDocumentPayload(types.DocumentKindFinancialGuarantee, []byte(`{"guarantees":[],"extra":1}`), false)
	assert.Contains(t, fieldsOf(t, err), "data")
}

func TestValidateProposalRequiresFile(t *testing.T) {
	_, err := ValidateDocumentPayload(types.DocumentKindTechnicalProposal, nil, false)
	assert.Contains(t, fieldsOf(t, err), "file")

	_, err = ValidateDocumentPayload(types.DocumentKindTechnicalProposal, []byte(`{"summary":"plan"}`), true)
	assert.NoError(t, err)

	_, err = ValidateDocumentPayload("UNKNOWN", nil, true)
	assert.Error(t, err)
}

func TestValidNationalID(t *testing.T) {
	assert.True(t, ValidNationalID("0499370899"))
	assert.False(t, ValidNationalID("0499370898"))
	assert.False(t, ValidNationalID("1111111111"))
	assert.False(t, ValidNationalID("12345"))
}

func TestValidateAnswer(t *testing.T) {
	options := []byte(`[{"value":"A","label":"Grade A","score":10},{"value":"B","label":"Grade B","score":5}]`)
	maxScore := 8.0

	sel := &types.EvaluationCriterion{ID: "sel", InputType: types.InputTypeSelect, IsRequired: true, PredefinedOptions: options, MaxScore: &maxScore}
	score, err := ValidateAnswer(sel, types.EvaluationAnswer{Value: utils.StringPtr("A")})
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 8.0, *score)

	_, err = ValidateAnswer(sel, types.EvaluationAnswer{Value: utils.StringPtr("C")})
	assert.Contains(t, fieldsOf(t, err), "criterion:sel")

	_, err = ValidateAnswer(sel, types.EvaluationAnswer{})
	assert.Equal(t, "is required", fieldsOf(t, err)["criterion:sel"])

	plain := &types.EvaluationCriterion{ID: "p", InputType: types.InputTypeSelect, PredefinedOptions: []byte(`["yes","no"]`)}
	score, err = ValidateAnswer(plain, types.EvaluationAnswer{Value: utils.StringPtr("no")})
	require.NoError(t, err)
	assert.Nil(t, score)

	num := &types.EvaluationCriterion{ID: "num", InputType: types.InputTypeNumber, ValidationRules: []byte(`{"min":1,"max":30}`)}
	_, err = ValidateAnswer(num, types.EvaluationAnswer{Value: utils.StringPtr("31")})
	assert.Contains(t, fieldsOf(t, err), "criterion:num")
	_, err = ValidateAnswer(num, types.EvaluationAnswer{Value: utils.StringPtr("12.5")})
	assert.NoError(t, err)
	_, err = ValidateAnswer(num, types.EvaluationAnswer{})
	assert.NoError(t, err)

	text := &types.EvaluationCriterion{ID: "txt", InputType: types.InputTypeText, ValidationRules: []byte(`{"minLength":3,"pattern":"^[a-z ]+$"}`)}
	_, err = ValidateAnswer(text, types.EvaluationAnswer{TextValue: utils.StringPtr("ab")})
	assert.Contains(t, fieldsOf(t, err), "criterion:txt")
	_, err = ValidateAnswer(text, types.EvaluationAnswer{TextValue: utils.StringPtr("ABC")})
	assert.Contains(t, fieldsOf(t, err), "criterion:txt")
	_, err = ValidateAnswer(text, types.EvaluationAnswer{TextValue: utils.StringPtr("abc def")})
	assert.NoError(t, err)

	file := &types.EvaluationCriterion{ID: "f", InputType: types.InputTypeFile}
	_, err = ValidateAnswer(file, types.EvaluationAnswer{Value: utils.StringPtr("x")})
	assert.Contains(t, fieldsOf(t, err), "criterion:f")
}

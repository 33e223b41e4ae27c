package errors

import "net/http"

// ErrorCode identifies a failure category as MODULE_NNN.
type ErrorCode string

func (c ErrorCode) String() string { return string(c) }

const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Molecule parsing and lookup.
const (
	ErrCodeMoleculeInvalidSMILES    ErrorCode = "MOL_001"
	ErrCodeMoleculeNotFound         ErrorCode = "MOL_004"
	ErrCodeMoleculeParsingFailed    ErrorCode = "MOL_006"
	ErrCodeMoleculeConversionFailed ErrorCode = "MOL_011"
	ErrCodeValenceViolation         ErrorCode = "MOL_016"
)

// Stereo enumeration and embedding.
const (
	ErrCodeStereoNoIsomers         ErrorCode = "STEREO_001"
	ErrCodeStereoTooManyIsomers    ErrorCode = "STEREO_002"
	ErrCodeStereoEnumerationFailed ErrorCode = "STEREO_003"
	ErrCodeEmbeddingFailed         ErrorCode = "STEREO_004"
)

const (
	ErrCodeLayoutFailed  ErrorCode = "RENDER_001"
	ErrCodeDrawingFailed ErrorCode = "RENDER_002"
)

// Name resolution backends.
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceRateLimited ErrorCode = "SRC_002"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_004"
)

const (
	ErrCodeStorageError      ErrorCode = "INFRA_001"
	ErrCodeMessageQueueError ErrorCode = "INFRA_002"
)

// Short names.
const (
	CodeOK                    = ErrorCode("OK")
	CodeUnknown               = ErrorCode("UNKNOWN")
	CodeNotFound              = ErrCodeNotFound
	CodeMoleculeInvalidSMILES = ErrCodeMoleculeInvalidSMILES
	CodeMoleculeNotFound      = ErrCodeMoleculeNotFound
)

type codeSpec struct {
	status  int
	message string
}

var registry = map[ErrorCode]codeSpec{
	ErrCodeInternal:           {http.StatusInternalServerError, "internal server error"},
	ErrCodeBadRequest:         {http.StatusBadRequest, "bad request"},
	ErrCodeNotFound:           {http.StatusNotFound, "resource not found"},
	ErrCodeConflict:           {http.StatusConflict, "resource conflict"},
	ErrCodeTooManyRequests:    {http.StatusTooManyRequests, "too many requests"},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, "service unavailable"},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, "request timeout"},
	ErrCodeValidation:         {http.StatusUnprocessableEntity, "validation failed"},
	ErrCodeSerialization:      {http.StatusInternalServerError, "serialization failed"},
	ErrCodeCacheError:         {http.StatusInternalServerError, "cache error"},
	ErrCodeExternalService:    {http.StatusBadGateway, "external service error"},
	ErrCodeFeatureDisabled:    {http.StatusForbidden, "feature disabled"},

	ErrCodeMoleculeInvalidSMILES:    {http.StatusBadRequest, "invalid SMILES format"},
	ErrCodeMoleculeNotFound:         {http.StatusNotFound, "Compound not found. Please check the name."},
	ErrCodeMoleculeParsingFailed:    {http.StatusUnprocessableEntity, "failed to parse molecule"},
	ErrCodeMoleculeConversionFailed: {http.StatusInternalServerError, "molecule format conversion failed"},
	ErrCodeValenceViolation:         {http.StatusUnprocessableEntity, "atom valence exceeded"},

	ErrCodeStereoNoIsomers:         {http.StatusUnprocessableEntity, "no embeddable stereoisomers"},
	ErrCodeStereoTooManyIsomers:    {http.StatusUnprocessableEntity, "too many stereoisomers"},
	ErrCodeStereoEnumerationFailed: {http.StatusInternalServerError, "stereoisomer enumeration failed"},
	ErrCodeEmbeddingFailed:         {http.StatusUnprocessableEntity, "3D embedding failed"},

	ErrCodeLayoutFailed:  {http.StatusInternalServerError, "2D layout failed"},
	ErrCodeDrawingFailed: {http.StatusInternalServerError, "depiction failed"},

	ErrCodeDataSourceUnavailable: {http.StatusServiceUnavailable, "data source unavailable"},
	ErrCodeDataSourceRateLimited: {http.StatusTooManyRequests, "data source rate limited"},
	ErrCodeDataSourceParseError:  {http.StatusBadGateway, "failed to parse data source response"},

	ErrCodeStorageError:      {http.StatusInternalServerError, "object storage error"},
	ErrCodeMessageQueueError: {http.StatusInternalServerError, "message queue error"},
}

// HTTPStatusForCode returns 500 for unregistered codes.
func HTTPStatusForCode(code ErrorCode) int {
	if s, ok := registry[code]; ok {
		return s.status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the registered user-facing message.
func DefaultMessageForCode(code ErrorCode) string {
	if s, ok := registry[code]; ok {
		return s.message
	}
	return "unknown error"
}

func IsClientError(code ErrorCode) bool {
	s := HTTPStatusForCode(code)
	return s >= 400 && s < 500
}

func IsServerError(code ErrorCode) bool {
	return HTTPStatusForCode(code) >= 500
}

//Personal.AI order the ending

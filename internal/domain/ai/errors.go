package ai

import "errors"

// ErrSensitiveContent indicates the analysis service refused the content
// because it judged it to contain secrets or PII. Not a failure: a deliberate
// terminal classification.
var ErrSensitiveContent = errors.New("content flagged as sensitive")

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

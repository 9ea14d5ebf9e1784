package items

import "errors"

// ErrEmptySubmission rejects an ingestion with no text and no images.
var ErrEmptySubmission = errors.New("content or at least one image required")

// ErrNotFound indicates the requested item does not exist.
var ErrNotFound = errors.New("item not found")

// ErrNotRetryable indicates a retry was requested for an item that is not in
// StatusError. Sensitive items are deliberately excluded: content flagged
// once must not be resubmitted to the analysis service.
var ErrNotRetryable = errors.New("item is not in a retryable state")

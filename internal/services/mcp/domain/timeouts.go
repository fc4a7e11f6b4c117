package domain

import "time"

// readCallTimeout caps a read-only tool call.
const readCallTimeout = 2 * time.Minute

// mutationCallTimeout caps a tool call that opens and commits one edit,
// including the artifact upload.
const mutationCallTimeout = 15 * time.Minute

// batchCallTimeout caps a batch deploy across several tracks.
const batchCallTimeout = 45 * time.Minute

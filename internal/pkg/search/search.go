// Package search holds constants shared by the storage adapters' keyword
// search queries.
package search

import "time"

// DefaultSearchTimeout bounds how long a LIKE-based keyword search may run
// before the context is cancelled, protecting the scheduler from a slow
// query on a large items table.
const DefaultSearchTimeout = 5 * time.Second

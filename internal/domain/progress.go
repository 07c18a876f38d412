package domain

// SyncResult summarizes what happened during a bulk job sync.
type SyncResult struct {
	Requested int  // Videos asked about
	Resolved  int  // Videos the registry returned a job for
	Polling   int  // Loops newly started for active jobs
	Stale     bool // A newer sync was issued first; nothing was applied
}

// Package storage keeps collected series on disk so later runs can extend them.
//
// A run produces four series that share one date range: keyword text, sample
// text, keyword sentiment and sample sentiment. Each series is a CSV file with
// one row per interval, newest interval first. File names encode the series
// identity:
//
//	tweet_1.1.24_1.3.24_10_240_.csv
//	senti_1.1.24_1.3.24_10_240_sample.csv
//
// An embedded sqlite index maps identities to files, so lookups never depend on
// parsing names. Names are only parsed to import files from a directory that
// predates the index.
//
// Extending a series appends rows and then renames the file to the new end
// date. The data is synced before the identity changes, so a crash between the
// two leaves the old identity pointing at a file with the new rows. SaveRun
// extends the four series of a run together: every target is checked before
// the first append, and a later failure truncates the files and restores
// their names.
//
// Features:
//   - Identity records with civil start and end dates
//   - Append, sync, then rename and reindex in one transaction
//   - All-or-nothing creation and extension of a run's four series
//   - Archiving with archived_ prefixed names
//   - Run provenance in a runs table
//
// Usage:
//
//	store, err := storage.Open(dir, log)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if _, err := store.StartRun(start, end, 10, 240); err != nil {
//	    return err
//	}
//	err = store.SaveRun(10, 240, end, storage.RunRows{Text: texts, Sentiment: scores})
package storage

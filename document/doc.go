// Package document is the portable pipeline format: export, import, and
// the on-disk library of saved pipelines.
//
// Export captures everything needed to rebuild a canvas on another
// machine (stage placements, all stage configs, dataset shape) while
// deliberately leaving out anything machine-bound: the backend session
// id, the data preview, and any training result. An imported pipeline
// therefore always starts with its dataset and model stages pending.
//
// Import is all-or-nothing. Parse runs a JSON Schema shape check, then
// a version gate (same major only), then the same semantic validation
// the UI applies when editing configs; the first violation rejects the
// whole document with ErrImportRejected and the running pipeline is
// left exactly as it was. Only a fully valid document reaches Apply.
//
// Store keeps saved pipelines as one pretty-printed JSON file per UUID
// under a data directory. Loading a saved file goes through Parse, so a
// hand-edited file fails the same way a bad import does.
package document

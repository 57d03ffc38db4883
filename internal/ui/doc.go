// Package ui is the Bubble Tea terminal interface for browsing and uploading
// X-ray scans.
//
// Three screens share one Model:
//
//   - List: scan table with a preview pane, free-text search (debounced),
//     body part / diagnosis / institution pickers and a clear action.
//   - Detail: every field of one scan, fetched fresh on open, with the image
//     URL and its load state. esc cancels the fetch.
//   - Upload: the new-scan form with a file picker. Client-side validation
//     runs before anything is sent; server field errors show inline.
//
// All I/O runs in tea.Cmds. Results carry a sequence number or image
// generation so a response for a screen or list the user already left is
// dropped instead of rendered.
package ui

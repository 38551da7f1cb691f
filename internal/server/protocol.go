// Package server implements the tool-invocation boundary: line-delimited
// JSON requests on stdin, one JSON response line per request on stdout.
//
// The transport is deliberately thin. It checks input shape (field
// presence and types), hands validated requests to the gate and the
// coordinator, and maps their results to the wire format. Failures are
// signaled with ok=false and exactly one error descriptor.
package server

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/patchkit/internal/diagnose"
	"github.com/dshills/patchkit/internal/edit"
	"github.com/dshills/patchkit/internal/txn"
)

// parseRequest decodes one request line into edit requests.
// Shape errors return a descriptive error; content validation beyond
// shape belongs to the gate.
func parseRequest(line []byte) (id string, reqs []edit.Request, err error) {
	if !gjson.ValidBytes(line) {
		return "", nil, fmt.Errorf("request is not valid JSON")
	}

	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return "", nil, fmt.Errorf("request must be a JSON object")
	}

	id = doc.Get("id").String()

	files := doc.Get("files")
	if !files.Exists() || !files.IsArray() {
		return id, nil, fmt.Errorf("request needs a files array")
	}

	for i, f := range files.Array() {
		path := f.Get("path")
		if !path.Exists() || path.Type != gjson.String {
			return id, nil, fmt.Errorf("files[%d]: path must be a string", i)
		}

		edits := f.Get("edits")
		if !edits.Exists() || !edits.IsArray() {
			return id, nil, fmt.Errorf("files[%d]: edits must be an array", i)
		}

		req := edit.Request{
			Path:          path.String(),
			DryRun:        f.Get("dry_run").Bool(),
			Backup:        f.Get("backup").Bool(),
			ReturnContent: f.Get("return_content").Bool(),
		}

		for j, e := range edits.Array() {
			search := e.Get("search")
			if !search.Exists() || search.Type != gjson.String {
				return id, nil, fmt.Errorf("files[%d].edits[%d]: search must be a string", i, j)
			}
			replace := e.Get("replace")
			if replace.Exists() && replace.Type != gjson.String {
				return id, nil, fmt.Errorf("files[%d].edits[%d]: replace must be a string", i, j)
			}

			req.Ops = append(req.Ops, edit.Operation{
				Search:  search.String(),
				Replace: replace.String(),
				All:     e.Get("all").Bool(),
				Fold:    e.Get("fold").Bool(),
			})
		}

		reqs = append(reqs, req)
	}

	return id, reqs, nil
}

// buildSuccess renders the response line for a committed transaction.
func buildSuccess(id string, res *txn.Result) ([]byte, error) {
	out := []byte(`{}`)
	var err error

	if out, err = sjson.SetBytes(out, "ok", true); err != nil {
		return nil, err
	}
	if id != "" {
		if out, err = sjson.SetBytes(out, "id", id); err != nil {
			return nil, err
		}
	}
	if out, err = sjson.SetBytes(out, "txn", res.TxnID); err != nil {
		return nil, err
	}

	for i, f := range res.Files {
		base := fmt.Sprintf("files.%d", i)
		if out, err = sjson.SetBytes(out, base+".path", f.Path); err != nil {
			return nil, err
		}
		if out, err = sjson.SetBytes(out, base+".status", string(f.Status)); err != nil {
			return nil, err
		}

		o := f.Outcome
		if o == nil {
			continue
		}
		if out, err = sjson.SetBytes(out, base+".edits_applied", o.Applied); err != nil {
			return nil, err
		}
		for j, r := range o.Results {
			key := fmt.Sprintf("%s.replacements.%d", base, j)
			if out, err = sjson.SetBytes(out, key+".index", r.Index); err != nil {
				return nil, err
			}
			if out, err = sjson.SetBytes(out, key+".replaced", r.Replaced); err != nil {
				return nil, err
			}
		}
		if o.DryRun {
			if out, err = sjson.SetBytes(out, base+".dry_run", true); err != nil {
				return nil, err
			}
		}
		if o.BackupPath != "" {
			if out, err = sjson.SetBytes(out, base+".backup_path", o.BackupPath); err != nil {
				return nil, err
			}
		}
		if o.FinalContent != nil {
			if out, err = sjson.SetBytes(out, base+".content", string(o.FinalContent)); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// buildFailure renders the response line for a failed call. files may be
// nil when the failure predates the transaction.
func buildFailure(id, txnID string, desc *diagnose.Descriptor, files []txn.FileResult) ([]byte, error) {
	out := []byte(`{}`)
	var err error

	if out, err = sjson.SetBytes(out, "ok", false); err != nil {
		return nil, err
	}
	if id != "" {
		if out, err = sjson.SetBytes(out, "id", id); err != nil {
			return nil, err
		}
	}
	if txnID != "" {
		if out, err = sjson.SetBytes(out, "txn", txnID); err != nil {
			return nil, err
		}
	}

	descJSON, err := json.Marshal(desc)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetRawBytes(out, "error", descJSON); err != nil {
		return nil, err
	}

	for i, f := range files {
		base := fmt.Sprintf("files.%d", i)
		if out, err = sjson.SetBytes(out, base+".path", f.Path); err != nil {
			return nil, err
		}
		if out, err = sjson.SetBytes(out, base+".status", string(f.Status)); err != nil {
			return nil, err
		}
		if f.BackupPath != "" {
			if out, err = sjson.SetBytes(out, base+".backup_path", f.BackupPath); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

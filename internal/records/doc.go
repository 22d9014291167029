// Package records defines the durable data owned by the storage collaborator:
// registered children and the append-only symptom report log. Store is the
// narrow interface the dialog core consumes; memstore, pgstore and mongostore
// provide the backends.
package records

// Package models holds the schema snapshots of every protocol pair. Stubs under rd-lib/model are
// generated from these files and must never be edited by hand.
package models

import "embed"

//go:generate go run ../../rdgen generate --schema ide.yaml --role asis --out ../model/ide/ide.go
//go:generate go run ../../rdgen generate --schema ide.yaml --role reversed --out ../model/ideclient/ideclient.go
//go:generate go run ../../rdgen generate --schema typeproviders.yaml --role asis --out ../model/typeproviders/typeproviders.go
//go:generate go run ../../rdgen generate --schema typeproviders.yaml --role reversed --out ../model/typeprovidersclient/typeprovidersclient.go
//go:generate go run ../../rdgen generate --schema formatter.yaml --role asis --out ../model/formatter/formatter.go
//go:generate go run ../../rdgen generate --schema formatter.yaml --role reversed --out ../model/formatterclient/formatterclient.go

// FS exposes the snapshots to tooling that checks the generated stubs for drift.
//
//go:embed *.yaml
var FS embed.FS

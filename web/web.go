// Package web berisi aplikasi client statis yang di-embed ke binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

// FS mengembalikan isi folder static sebagai root http.FileSystem
func FS() http.FileSystem {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// "static" selalu ada di embed, error hanya terjadi jika path salah
		panic(err)
	}
	return http.FS(sub)
}

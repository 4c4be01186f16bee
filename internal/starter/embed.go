// Package starter embeds the files `convforge init` writes into a new
// project: a settings file and an example seed scenario. The embedded
// filesystem is rooted at "files/".
package starter

import "embed"

// Root is the directory inside FS that maps onto the project root.
const Root = "files"

// FS contains the embedded starter files. Walk from Root to iterate over all
// of them.
//
//go:embed all:files
var FS embed.FS

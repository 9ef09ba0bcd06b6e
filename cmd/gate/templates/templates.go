// Package templates holds the gateway's static HTML surfaces. The markup
// is served verbatim; only the directory listing and upload summary are
// assembled from data, with all labels HTML-escaped.
package templates

import (
	"fmt"
	"html"
	"path"
	"strings"
)

// LoginHTML is the login form
const LoginHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>LIQK Gate - Login</title>
</head>
<body>
<h1>LIQK Gate</h1>
<p>Enter your access token to continue</p>
<form method="POST" action="/gate/login">
<input type="password" name="token" placeholder="Access Token" autocomplete="off" required>
<button type="submit">Authenticate</button>
</form>
</body>
</html>
`

// LoginErrorHTML is the login form with a failure notice
const LoginErrorHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>LIQK Gate - Login Failed</title>
</head>
<body>
<h1>LIQK Gate</h1>
<p>Invalid token. Please try again.</p>
<form method="POST" action="/gate/login">
<input type="password" name="token" placeholder="Access Token" autocomplete="off" required>
<button type="submit">Authenticate</button>
</form>
</body>
</html>
`

// UploadHTML is the upload form
const UploadHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>LIQK Gate - Upload</title>
</head>
<body>
<h1>Upload Files</h1>
<form method="POST" action="/gate/upload" enctype="multipart/form-data">
<input type="file" name="file" multiple required>
<button type="submit">Upload</button>
</form>
</body>
</html>
`

// UploadSummaryHTML renders the per-file outcome of an upload batch
func UploadSummaryHTML(filenames []string) string {
	var items strings.Builder
	for _, name := range filenames {
		fmt.Fprintf(&items, "<li>%s</li>\n", html.EscapeString(name))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>LIQK Gate - Uploaded</title></head>
<body>
<h1>Uploaded %d file(s)</h1>
<ul>
%s</ul>
<p><a href="/gate/upload">Upload more</a></p>
</body>
</html>
`, len(filenames), items.String())
}

// ListingEntry is one row of a directory listing
type ListingEntry struct {
	Label string
	IsDir bool
}

// ListingHTML renders a directory listing. dirPath is the slash-joined
// label path of the directory being listed ("" for the root).
func ListingHTML(dirPath string, entries []ListingEntry) string {
	var rows strings.Builder
	for _, e := range entries {
		href := html.EscapeString("/gate/file/" + path.Join(dirPath, e.Label))
		label := html.EscapeString(e.Label)
		if e.IsDir {
			label += "/"
		}
		fmt.Fprintf(&rows, `<li><a href="%s">%s</a></li>`+"\n", href, label)
	}

	title := "/" + dirPath
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>LIQK Gate - %s</title></head>
<body>
<h1>Index of %s</h1>
<ul>
%s</ul>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(title), rows.String())
}

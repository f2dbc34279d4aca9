// Package repostore persists configuration, keyed data and binary blobs as
// plain files, with crash-safe writes and an in-memory read-through cache.
//
// Every write of a configuration or data entry goes through an atomic
// replace: the new content is written to a temp file next to the target, the
// old file is moved aside, and the temp file is renamed into place. A failed
// write leaves the previous content untouched.
//
// Stores live either globally under a base directory or inside a repository:
//
//	<base>/config/<name>.xml
//	<base>/var/data/<name>/<id>.xml
//	<base>/var/blob/<name>/<id>.blob
//	<repo>/store/<config|data|blob>/...
//
// Basic usage:
//
//	f, _ := repostore.New("~/.local/share/myapp")
//
//	// Single value
//	settings, _ := repostore.Config[Settings](f, "settings")
//	settings.Set(Settings{Theme: "dark"})
//	s, ok, _ := settings.Get()
//
//	// Keyed values
//	users, _ := repostore.Data[User](f, "users")
//	users.Put("42", User{Name: "arthur"})
//	id, _ := users.Add(User{Name: "ford"})
//	all, _ := users.GetAll()
//
//	// Binary streams
//	blobs, _ := repostore.Blobs(f, "uploads")
//	b, _ := blobs.Create()
//	w, _ := b.OutputStream()
//	io.Copy(w, src)
//	w.Close()
//
// Repository stores:
//
//	f, _ := repostore.New(base, repostore.WithRepositoriesDir("/srv/repos"))
//	hooks, _ := repostore.Data[Hook](f, "hooks", repostore.ForRepository("core"))
//
// Opening the same store twice returns the same instance. Values returned by
// Get are shared with the cache and must be treated as read-only.
package repostore

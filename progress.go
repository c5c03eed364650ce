package myftp

import "io"

// progressWriter reports each write to a WithProgress callback together with
// the size the server announced for the file.
type progressWriter struct {
	w      io.Writer
	done   int64
	total  int64
	report func(done, total int64)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	if n > 0 {
		pw.done += int64(n)
		pw.report(pw.done, pw.total)
	}
	return n, err
}

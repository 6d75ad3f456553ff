package toolchain

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"io/fs"
	"testing"

	"github.com/ulikunitz/xz"
)

type entry struct {
	name string
	body string
	mode fs.FileMode
}

func mavenEntries(version string) []entry {
	dir := "apache-maven-" + version + "/"
	return []entry{
		{name: dir, mode: fs.ModeDir | 0o755},
		{name: dir + "bin/mvn", body: "#!/bin/sh\n", mode: 0o755},
		{name: dir + "bin/m2.conf", body: "main is org.apache.maven.cli.MavenCli from plexus.core\n", mode: 0o644},
		{name: dir + "boot/plexus-classworlds-2.6.0.jar", body: "jar", mode: 0o644},
		{name: dir + "lib/maven-core.jar", body: "jar", mode: 0o644},
	}
}

func zipArchive(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		hdr.SetMode(e.mode)
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, e.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func tarArchive(t *testing.T, entries []entry, compress func(io.Writer) io.WriteCloser) []byte {
	t.Helper()
	var buf bytes.Buffer
	cw := compress(&buf)
	tw := tar.NewWriter(cw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: int64(e.mode.Perm()), Size: int64(len(e.body))}
		if e.mode.IsDir() {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		} else {
			hdr.Typeflag = tar.TypeReg
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(tw, e.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gzipWriter(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }

func xzWriter(t *testing.T) func(io.Writer) io.WriteCloser {
	return func(w io.Writer) io.WriteCloser {
		xw, err := xz.NewWriter(w)
		if err != nil {
			t.Fatal(err)
		}
		return xw
	}
}

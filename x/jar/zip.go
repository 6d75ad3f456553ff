package jar

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/0xdeki/dsdn/internal/diag"
)

// ManifestName is the entry holding the jar manifest.
const ManifestName = "META-INF/MANIFEST.MF"

const manifest = "Manifest-Version: 1.0\r\nCreated-By: dsdn\r\n\r\n"

// WriteZip is Create without a JDK: it writes dir into output as a jar with
// the same layout the jar tool produces. A manifest is generated unless dir
// already carries one.
func WriteZip(dir, output string) (err error) {
	out, err := prepare(output)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return diag.PathE(diag.Filesystem, "jar", out, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = diag.PathE(diag.Filesystem, "jar", out, cerr)
		}
		if err != nil {
			os.Remove(out)
		}
	}()

	w := zip.NewWriter(f)
	if err = writeEntries(w, dir, out); err != nil {
		w.Close()
		return diag.PathE(diag.Filesystem, "jar", dir, err)
	}
	if err = w.Close(); err != nil {
		return diag.PathE(diag.Filesystem, "jar", out, err)
	}
	return nil
}

func writeEntries(w *zip.Writer, dir, out string) error {
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(ManifestName)))
	generated := os.IsNotExist(err)
	if generated {
		if _, err := w.Create("META-INF/"); err != nil {
			return err
		}
		mf, err := w.Create(ManifestName)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(mf, manifest); err != nil {
			return err
		}
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." || generated && rel == "META-INF" {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == out {
			return nil
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
			_, err = w.CreateHeader(header)
			return err
		}
		header.Method = zip.Deflate

		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})
}

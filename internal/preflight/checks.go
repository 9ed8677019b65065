package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"nascam/internal/container"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadable verifies that path is a readable regular file with a frame or
// container extension.
func CheckReadable(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: path, Detail: "does not exist"}
		}
		return Result{Name: path, Detail: fmt.Sprintf("stat: %v", err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: path, Detail: "is not a regular file"}
	}
	kind := container.Classify(path)
	if kind == container.KindUnknown {
		return Result{Name: path, Detail: "unrecognized file type (want .png or .tar)"}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: path, Detail: fmt.Sprintf("insufficient permissions: %v", err)}
	}
	return Result{Name: path, Passed: true, Detail: kind.String()}
}

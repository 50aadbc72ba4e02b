package app

import "strings"

// ResolveImageURL makes a prompt image reference loadable by the device.
// Absolute http(s) URLs pass through; relative paths are joined to base.
func ResolveImageURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if base == "" {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

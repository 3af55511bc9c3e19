package nametransform

import "strings"

// EncodePath walks a plaintext path component by component, encoding each
// with t and carrying chain across components iff chaining is enabled.
// Empty components and "." / ".." pass through unchanged.
func EncodePath(t Transform, path string, chain *IVChain) (string, error) {
	return walkPath(path, func(component string) (string, error) {
		return t.Encode(component, chain)
	})
}

// DecodePath is the inverse of EncodePath; chain must start from the same
// seed used to encode, and is walked top-down the same way.
func DecodePath(t Transform, path string, chain *IVChain) (string, error) {
	return walkPath(path, func(component string) (string, error) {
		return t.Decode(component, chain)
	})
}

func walkPath(path string, step func(string) (string, error)) (string, error) {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		out, err := step(p)
		if err != nil {
			return "", err
		}
		parts[i] = out
	}
	return strings.Join(parts, "/"), nil
}

// Package options holds flag structs for docker subcommands. ToArgs turns a
// populated struct into argv.
package options

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// PsOptions are flags for `docker ps`.
type PsOptions struct {
	All    bool     `flag:"--all"`    // Show all containers, not just running ones
	Filter []string `flag:"--filter"` // Filter output based on conditions provided
	Format string   `flag:"--format"` // Format output using a Go template
}

// ImagesOptions are flags for `docker images`.
type ImagesOptions struct {
	Filter []string `flag:"--filter"` // Filter output based on conditions provided
	Format string   `flag:"--format"` // Format output using a Go template
	Quiet  bool     `flag:"--quiet"`  // Only show image IDs
}

// InspectOptions are flags for `docker inspect` and `docker image inspect`.
type InspectOptions struct {
	Format string `flag:"--format"` // Format output using a Go template
}

// RemoveImage are flags for `docker rmi`.
type RemoveImage struct {
	Force bool `flag:"--force"` // Force removal of the image
}

// VolumeList are flags for `docker volume ls`.
type VolumeList struct {
	Filter []string `flag:"--filter"` // Provide filter values
	Format string   `flag:"--format"` // Format output using a Go template
}

// BuildOptions are flags for `docker build`.
type BuildOptions struct {
	Tag       string            `flag:"--tag"`              // Name and optionally a tag in the name:tag format
	File      string            `flag:"--file"`             // Name of the Dockerfile
	BuildArgs map[string]string `flag:"--build-arg,repeat"` // Set build-time variables
}

// ToArgs creates an array of strings that you can pass to exec.Command(...) as CLI args.
// Bools render as a bare flag, slices repeat the flag per element, maps render
// sorted k=v pairs joined by commas, or one flag per pair with ",repeat".
// Zero values are skipped unless the tag carries ",keepZero".
func ToArgs(s any) []string {
	v := reflect.ValueOf(s)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return appendArgs(nil, v)
}

func appendArgs(ret []string, sv reflect.Value) []string {
	st := sv.Type()
	for i := range st.NumField() {
		field := st.Field(i)
		fv := sv.Field(i)
		if field.Anonymous && fv.Kind() == reflect.Struct {
			ret = appendArgs(ret, fv)
			continue
		}
		flagTag, ok := field.Tag.Lookup("flag")
		if !ok {
			continue
		}
		flagParts := strings.Split(flagTag, ",")
		flagName := flagParts[0]
		keepZero, repeat := false, false
		for _, p := range flagParts[1:] {
			switch strings.ToLower(p) {
			case "keepzero":
				keepZero = true
			case "repeat":
				repeat = true
			}
		}
		if !keepZero && fv.IsZero() {
			continue
		}

		switch fv.Kind() {
		case reflect.Bool:
			if fv.Bool() {
				ret = append(ret, flagName)
			}
		case reflect.Slice:
			for j := range fv.Len() {
				ret = append(ret, flagName, fmt.Sprintf("%v", fv.Index(j).Interface()))
			}
		case reflect.Map:
			m := fv.Interface().(map[string]string)
			keys := slices.Sorted(maps.Keys(m))
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, fmt.Sprintf("%v=%v", k, m[k]))
			}
			if repeat {
				for _, p := range pairs {
					ret = append(ret, flagName, p)
				}
			} else if len(pairs) > 0 {
				ret = append(ret, flagName, strings.Join(pairs, ","))
			}
		default:
			ret = append(ret, flagName, fmt.Sprintf("%v", fv.Interface()))
		}
	}
	return ret
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"code.byted.org/khicago/localstore"
	"github.com/spf13/cobra"
)

var errOperationFailed = errors.New("operation failed, see log for details")

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func parseJSONArg(arg string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return nil, fmt.Errorf("value %q is not valid JSON: %w", arg, err)
	}
	return v, nil
}

// scoped returns the namespace view when --namespace is set, nil otherwise.
func (a *app) scoped() (*localstore.Namespace[string], error) {
	if a.namespace == "" {
		return nil, nil
	}
	return a.storage.Namespace(a.namespace)
}

func newGetCmd(a *app) *cobra.Command {
	var fallback string
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var def any
			if fallback != "" {
				v, err := parseJSONArg(fallback)
				if err != nil {
					return err
				}
				def = v
			}

			ns, err := a.scoped()
			if err != nil {
				return err
			}
			var v any
			if ns != nil {
				v = ns.Get(cmd.Context(), args[0], def)
			} else {
				v = a.storage.GetItem(cmd.Context(), args[0], def)
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringVarP(&fallback, "default", "d", "", "JSON value printed when KEY is absent")
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Store a JSON value under KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseJSONArg(args[1])
			if err != nil {
				return err
			}
			ns, err := a.scoped()
			if err != nil {
				return err
			}
			var ok bool
			if ns != nil {
				ok = ns.Set(cmd.Context(), args[0], v)
			} else {
				ok = a.storage.SetItem(cmd.Context(), args[0], v)
			}
			if !ok {
				return errOperationFailed
			}
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm KEY",
		Aliases: []string{"remove"},
		Short:   "Remove KEY",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.scoped()
			if err != nil {
				return err
			}
			var ok bool
			if ns != nil {
				ok = ns.Remove(cmd.Context(), args[0])
			} else {
				ok = a.storage.RemoveItem(cmd.Context(), args[0])
			}
			if !ok {
				return errOperationFailed
			}
			return nil
		},
	}
}

func newHasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "has KEY",
		Short: "Print whether KEY is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.scoped()
			if err != nil {
				return err
			}
			var ok bool
			if ns != nil {
				ok = ns.Has(cmd.Context(), args[0])
			} else {
				ok = a.storage.HasItem(cmd.Context(), args[0])
			}
			return writeJSON(cmd.OutOrStdout(), ok)
		},
	}
}

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.scoped()
			if err != nil {
				return err
			}
			var keys []string
			if ns != nil {
				keys = ns.Keys(cmd.Context())
			} else {
				keys = a.storage.Keys(cmd.Context())
			}
			if keys == nil {
				return errOperationFailed
			}
			return writeJSON(cmd.OutOrStdout(), keys)
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every key in the namespace, or the whole store without --namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.scoped()
			if err != nil {
				return err
			}
			var ok bool
			if ns != nil {
				ok = ns.Clear(cmd.Context())
			} else {
				ok = a.storage.Clear(cmd.Context())
			}
			if !ok {
				return errOperationFailed
			}
			return nil
		},
	}
}

func newMGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mget KEY...",
		Short: "Print a JSON object of several raw keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), a.storage.GetItems(cmd.Context(), args...))
		},
	}
}

func newMSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mset KEY=JSON...",
		Short: "Store several raw keys; every pair is attempted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := make(map[string]any, len(args))
			for _, arg := range args {
				key, raw, found := strings.Cut(arg, "=")
				if !found || key == "" {
					return fmt.Errorf("argument %q is not KEY=JSON", arg)
				}
				v, err := parseJSONArg(raw)
				if err != nil {
					return err
				}
				items[key] = v
			}
			if !a.storage.SetItems(cmd.Context(), items) {
				return errOperationFailed
			}
			return nil
		},
	}
}

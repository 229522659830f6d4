package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/adrianmcphee/globalcache"
)

var (
	pingCmd = &cobra.Command{
		Use:                "ping",
		Short:              "Check that the backend is reachable",
		Args:               cobra.NoArgs,
		PersistentPreRunE:  connect,
		PersistentPostRunE: disconnect,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			if err := current.backend.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ok\n", current.backend.Name())
			return nil
		},
	}

	// entity commands

	entityCommands = &cobra.Command{
		Use:                "entity",
		Short:              "Read and delete cached entities",
		PersistentPreRunE:  connect,
		PersistentPostRunE: disconnect,
	}
	entityGetCmd = &cobra.Command{
		Use:   "get [type] [id]",
		Short: "Print the primary record of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := globalcache.DefaultRegistry().Lookup(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			e := current.cache.EntityByID(t, args[1])
			attrs, err := e.GetAllAttributes(ctx)
			if err != nil {
				return err
			}
			writeAttributes(cmd.OutOrStdout(), e.Key(), t, attrs)
			return nil
		},
	}
	entityLabelCmd = &cobra.Command{
		Use:   "label [type] [natural-key]",
		Short: "Resolve an entity through its label key, e.g. label device 5:device_label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, ok := globalcache.LabelTypes()[args[0]]
			if !ok {
				return fmt.Errorf("%w: %s has no label key", globalcache.ErrUnknownEntityType, args[0])
			}
			e, err := current.cache.ByLabel(l, globalcache.FromKey{Key: args[1]})
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			ref, _ := cmd.Flags().GetString("ref")
			if ref == "" {
				ref = l.Primary().Reference()
			}
			attrs, err := e.GetAllAttributesNested(ctx, ref)
			if err != nil {
				return err
			}
			writeAttributes(cmd.OutOrStdout(), e.Key(), l.Primary(), attrs)
			return nil
		},
	}
	entityDeleteCmd = &cobra.Command{
		Use:   "delete [type] [id]",
		Short: "Delete the primary record of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := globalcache.DefaultRegistry().Lookup(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := opContext(cmd)
			defer cancel()

			e := current.cache.EntityByID(t, args[1])
			if err := e.Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", e.Key())
			return nil
		},
	}
	entityTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "List the known entity types and their attributes",
		Args:  cobra.NoArgs,
		// no backend needed
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			writeTypes(cmd.OutOrStdout(), globalcache.DefaultRegistry(), globalcache.LabelTypes())
			return nil
		},
	}

	// set commands

	setCommands = &cobra.Command{
		Use:                "set",
		Short:              "Operate on unique-member sets",
		PersistentPreRunE:  connect,
		PersistentPostRunE: disconnect,
	}
	setScanCmd = &cobra.Command{
		Use:   "scan [key]",
		Short: "Print the members of a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			members, err := current.backend.SetScan(ctx, args[0])
			if err != nil {
				return err
			}
			writeMembers(cmd.OutOrStdout(), members)
			return nil
		},
	}
	setAddCmd = &cobra.Command{
		Use:   "add [key] [member...]",
		Short: "Add members to a set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			return current.backend.SetAddMany(ctx, args[0], args[1:]...)
		},
	}
	setRemoveCmd = &cobra.Command{
		Use:   "remove [key] [member...]",
		Short: "Remove members from a set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			return current.backend.SetRemoveMany(ctx, args[0], args[1:]...)
		},
	}
	setClearCmd = &cobra.Command{
		Use:   "clear [key]",
		Short: "Remove a whole set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			return current.backend.SetClear(ctx, args[0])
		},
	}

	// map commands

	mapCommands = &cobra.Command{
		Use:                "map",
		Short:              "Operate on record fields and counters",
		PersistentPreRunE:  connect,
		PersistentPostRunE: disconnect,
	}
	mapGetCmd = &cobra.Command{
		Use:   "get [key] [field]",
		Short: "Print one field of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			v, found, err := current.backend.MapGetValue(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			writeValue(cmd.OutOrStdout(), v, found)
			return nil
		},
	}
	mapPutCmd = &cobra.Command{
		Use:   "put [key] [field] [value]",
		Short: "Set one field of a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			return current.backend.MapPutValue(ctx, args[0], args[1], args[2])
		},
	}
	mapIncrCmd = &cobra.Command{
		Use:   "incr [key] [field] [delta]",
		Short: "Atomically add delta to a counter field",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be an integer: %w", err)
			}
			ctx, cancel := opContext(cmd)
			defer cancel()
			n, err := current.backend.MapIncrement(ctx, args[0], args[1], delta)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	// value commands

	valueCommands = &cobra.Command{
		Use:                "value",
		Short:              "Operate on scalar values",
		PersistentPreRunE:  connect,
		PersistentPostRunE: disconnect,
	}
	valueGetCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Print a scalar value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			v, found, err := current.backend.GetValue(ctx, args[0])
			if err != nil {
				return err
			}
			writeValue(cmd.OutOrStdout(), v, found)
			return nil
		},
	}
	valuePutCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Store a scalar value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			return current.backend.PutValue(ctx, args[0], args[1])
		},
	}

	// udf commands (aerospike only)

	udfCommands = &cobra.Command{
		Use:   "udf",
		Short: "Manage the Aerospike set UDF",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Flags().Set("skip-udf", "true"); err != nil {
				return err
			}
			if err := connect(cmd, args); err != nil {
				return err
			}
			if current.aerospike == nil {
				return fmt.Errorf("udf commands need --backend aerospike")
			}
			return nil
		},
		PersistentPostRunE: disconnect,
	}
	udfInstallCmd = &cobra.Command{
		Use:   "install",
		Short: "Register the set UDF (embedded, or --file)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			udf := current.aerospike.UDF()
			path, _ := cmd.Flags().GetString("file")
			var err error
			if path != "" {
				err = udf.SaveUDFFile(ctx, path)
			} else {
				err = udf.SaveUDF(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "udf registered")
			return nil
		},
	}
	udfStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Report whether the set UDF is registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext(cmd)
			defer cancel()
			ok, err := current.aerospike.UDF().Registered(ctx)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "registered")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "not registered")
			}
			return nil
		},
	}
)

func init() {
	entityLabelCmd.Flags().String("ref", "", "attribute holding the primary id (default: the type's reference)")
	entityCommands.AddCommand(entityGetCmd, entityLabelCmd, entityDeleteCmd, entityTypesCmd)

	setCommands.AddCommand(setScanCmd, setAddCmd, setRemoveCmd, setClearCmd)
	mapCommands.AddCommand(mapGetCmd, mapPutCmd, mapIncrCmd)
	valueCommands.AddCommand(valueGetCmd, valuePutCmd)

	udfInstallCmd.Flags().String("file", "", "register this Lua file instead of the embedded script")
	udfCommands.AddCommand(udfInstallCmd, udfStatusCmd)
}

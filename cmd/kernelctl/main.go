package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nmxmxh/kernelcore/kernel/api"
	"github.com/nmxmxh/kernelcore/kernel/channel"
	"github.com/nmxmxh/kernelcore/kernel/contract"
	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/request"
	"github.com/nmxmxh/kernelcore/kernel/scheduler"
	"github.com/nmxmxh/kernelcore/kernel/subsystem"
	"github.com/nmxmxh/kernelcore/kernel/system"
)

func main() {
	fmt.Println("kernelctl starting...")
	ctx := context.Background()

	ms := system.New(scheduler.StrategyPriority, nil, 100)
	fmt.Println("kernel identity:", ms.Kernel().PKR().UUID)

	users := subsystem.NewRoot("users", contract.NewRegistry(), subsystem.Config{
		Synchronous:       true,
		SchedulerPriority: 2,
	})
	if err := ms.Register(users); err != nil {
		fmt.Println("register users:", err)
		os.Exit(1)
	}
	if _, err := users.Build(nil); err != nil {
		fmt.Println("build users:", err)
		os.Exit(1)
	}

	usersQueries := api.NewQueries(users, nil, 0)
	_ = usersQueries.Register("getUser", func(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
		body, _ := msg.Body.(map[string]string)
		return foundation.Ok(map[string]string{"id": body["id"], "name": "Ada"}), nil
	}, foundation.RouteOptions{})

	usersCommands := api.NewCommands(users, nil, nil, 0)
	_ = usersCommands.Register("rename", func(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
		body, _ := msg.Body.(map[string]string)
		fmt.Println("users: renaming", body["id"], "to", body["name"])
		return foundation.Ok(map[string]string{"status": "renamed"}), nil
	}, foundation.RouteOptions{})

	usersEvents := api.NewEvents(users, users.Listeners(), ms)
	_, _ = usersEvents.On("users://event/*", func(ctx context.Context, msg foundation.Message) {
		fmt.Println("users: observed event", msg.Path.String())
	})

	billing := subsystem.NewRoot("billing", contract.NewRegistry(), subsystem.Config{
		Synchronous:       true,
		SchedulerPriority: 1,
	})
	if err := ms.Register(billing); err != nil {
		fmt.Println("register billing:", err)
		os.Exit(1)
	}
	if _, err := billing.Build(nil); err != nil {
		fmt.Println("build billing:", err)
		os.Exit(1)
	}

	store := request.NewStore()
	requester := request.New(billing, store, ms)
	channels := channel.New(billing, store)

	billingQueries := api.NewQueries(billing, requester, 2*time.Second)
	result, err := billingQueries.Ask(ctx, "users://query/getUser", map[string]string{"id": "u1"}, 2*time.Second)
	if err != nil {
		fmt.Println("query getUser failed:", err)
		os.Exit(1)
	}
	fmt.Println("billing: received", result.Data)

	billingCommands := api.NewCommands(billing, requester, channels, 2*time.Second)
	cmdResult, err := billingCommands.Send(ctx, "users://command/rename", map[string]string{"id": "u1", "name": "Ada Lovelace"}, api.CommandOptions{ReuseChannel: true})
	if err != nil {
		fmt.Println("command rename failed:", err)
		os.Exit(1)
	}
	fmt.Println("billing: command result", cmdResult.Data)

	billingEvents := api.NewEvents(billing, billing.Listeners(), ms)
	_ = billingEvents.Publish(ctx, "users://event/accountRenamed", map[string]string{"id": "u1"})

	for i := 0; i < 3; i++ {
		outcomes := ms.Tick(ctx, 10)
		for name, out := range outcomes {
			fmt.Printf("tick %d: %s processed=%d remaining=%d\n", i, name, out.Processed, out.RemainingQueue)
		}
	}

	fmt.Println("kernelctl done")
}

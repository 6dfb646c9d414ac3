package ux

import (
	"fmt"
	"os"

	"github.com/jorge-barreto/wreckit/internal/statemachine"
	"github.com/jorge-barreto/wreckit/internal/store"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// RenderStatus prints the full status display for one item: its current
// state, next phase, PRD story progress (if a PRD exists), and the
// artifacts present in its item directory.
func RenderStatus(repo *store.Repository, item *workitem.Item) {
	fmt.Printf("%sItem:%s    %s\n", Bold, Reset, item.ID)
	fmt.Printf("%sTitle:%s   %s\n", Bold, Reset, item.Title)

	if item.State == workitem.StateDone {
		fmt.Printf("%sState:%s   %s%sdone%s\n", Bold, Reset, Green, Bold, Reset)
	} else {
		next := statemachine.NextPhase(item.State)
		fmt.Printf("%sState:%s   %s (next: %s)\n", Bold, Reset, item.State, next)
	}
	if item.LastError != nil {
		fmt.Printf("%sError:%s   %s%s%s\n", Bold, Reset, Red, *item.LastError, Reset)
	}
	if item.PRURL != nil {
		fmt.Printf("%sPR:%s      %s\n", Bold, Reset, *item.PRURL)
	}
	if item.Branch != nil {
		fmt.Printf("%sBranch:%s  %s\n", Bold, Reset, *item.Branch)
	}

	if repo.HasPRD(item.ID) {
		if prd, err := repo.LoadPRD(item.ID); err == nil {
			fmt.Printf("\n%sStories:%s\n", Bold, Reset)
			for _, s := range prd.UserStories {
				marker := Dim
				switch s.Status {
				case workitem.StoryDone:
					marker = Green
				case workitem.StoryFailed:
					marker = Red
				case workitem.StoryInProgress:
					marker = Yellow
				}
				fmt.Printf("  %s%-8s%s %-10s %s\n", marker, s.Status, Reset, s.ID, s.Title)
			}
		}
	}

	fmt.Printf("\n%sArtifacts:%s\n", Bold, Reset)
	dir := repo.ItemDir(item.ID)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		fmt.Printf("  %s(none)%s\n", Dim, Reset)
		return
	}
	for _, e := range entries {
		fmt.Printf("  %s/%s\n", dir, e.Name())
	}
	fmt.Println()
}

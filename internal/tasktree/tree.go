// Package tasktree rebuilds the parent/child hierarchy of persisted tasks and
// projects flows into root tasks.
package tasktree

import (
	"sellerops/internal/models"
)

// Build turns a flat task list into a forest. Children keep the input order,
// so callers pre-sort (e.g. by execution order). A task whose parent is not in
// the list becomes a root. Parent cycles are broken at the task whose parent
// link closes the cycle, which then also becomes a root; no task is dropped.
func Build(tasks []models.Task) []*models.TaskTreeNode {
	nodes := make(map[string]*models.TaskTreeNode, len(tasks))
	for _, t := range tasks {
		if _, dup := nodes[t.ID]; !dup {
			nodes[t.ID] = &models.TaskTreeNode{Task: t, Children: []*models.TaskTreeNode{}}
		}
	}

	parentOf := make(map[string]string, len(tasks))
	linked := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if linked[t.ID] {
			continue
		}
		linked[t.ID] = true
		if t.ParentID == "" || t.ParentID == t.ID {
			continue
		}
		if _, ok := nodes[t.ParentID]; ok {
			parentOf[t.ID] = t.ParentID
		}
	}
	breakCycles(tasks, parentOf)

	roots := make([]*models.TaskTreeNode, 0, len(tasks))
	attached := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if attached[t.ID] {
			// duplicate id in the input; the first occurrence wins
			continue
		}
		attached[t.ID] = true
		node := nodes[t.ID]
		if parentID, ok := parentOf[t.ID]; ok {
			parent := nodes[parentID]
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}
	return roots
}

// breakCycles walks each parent chain once and cuts the link that closes a loop
func breakCycles(tasks []models.Task, parentOf map[string]string) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(tasks))

	for _, t := range tasks {
		if state[t.ID] != unvisited {
			continue
		}
		var path []string
		cur := t.ID
		for {
			state[cur] = visiting
			path = append(path, cur)
			parent, ok := parentOf[cur]
			if !ok {
				break
			}
			if state[parent] == visiting {
				delete(parentOf, cur)
				break
			}
			if state[parent] == done {
				break
			}
			cur = parent
		}
		for _, id := range path {
			state[id] = done
		}
	}
}

// Flatten walks a forest depth-first, parents before children
func Flatten(roots []*models.TaskTreeNode) []models.Task {
	var out []models.Task
	var walk func(nodes []*models.TaskTreeNode)
	walk = func(nodes []*models.TaskTreeNode) {
		for _, n := range nodes {
			out = append(out, n.Task)
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}

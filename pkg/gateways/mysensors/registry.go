package mysensors

import (
	"os"
	"sort"
	"sync"

	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Registry tracks every node heard on the radio network and persists
// the set across gateway restarts.
type Registry interface {
	Load() error
	Save() error
	NextNodeID() (int, error)
	GetOrCreateNode(id int) (entities.Node, bool)
	UpdateNode(node entities.Node)
	Node(id int) (entities.Node, bool)
	Nodes() []entities.Node
	SetNodeAlias(id int, alias string) error
}

type nodeRegistry struct {
	filepath       string
	fileManagement filesystemManagement
	log            *logrus.Entry
	mutex          sync.RWMutex
	nodes          map[int]entities.Node
}

func NewNodeRegistry(filepath string, fileManagement filesystemManagement, log *logrus.Entry) Registry {
	return &nodeRegistry{
		filepath:       filepath,
		fileManagement: fileManagement,
		log:            log,
		nodes:          make(map[int]entities.Node),
	}
}

// Load replaces the in-memory node set with the registry file. A
// missing file is not an error; the gateway starts with an empty
// network.
func (r *nodeRegistry) Load() error {
	document, err := utils.ConfigurationParser(r.filepath, entities.NodeRegistry{})
	if err != nil {
		if os.IsNotExist(err) {
			r.log.WithFields(logrus.Fields{"filepath": r.filepath}).Info("node registry file does not exist yet")
			return nil
		}
		return errors.Wrap(err, "load node registry")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.nodes = make(map[int]entities.Node)
	for _, node := range document.Nodes {
		r.nodes[node.ID] = node
	}
	return nil
}

func (r *nodeRegistry) Save() error {
	r.mutex.RLock()
	document := entities.NodeRegistry{Nodes: r.sortedNodes()}
	r.mutex.RUnlock()

	data, err := yaml.Marshal(&document)
	if err != nil {
		return errors.Wrap(err, "encode node registry")
	}
	if err := r.fileManagement.writeRegistryFile(r.filepath, data); err != nil {
		return errors.Wrap(err, "write node registry")
	}
	return nil
}

// NextNodeID reserves the lowest id above every known node, the way
// nodes expect their id handshake to behave. The reservation is kept
// in memory so two quick requests never get the same id.
func (r *nodeRegistry) NextNodeID() (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	next := 1
	for id := range r.nodes {
		if id >= next {
			next = id + 1
		}
	}
	if next > entities.MaxNodeID {
		return 0, errors.Errorf("node id pool exhausted, %d nodes known", len(r.nodes))
	}
	r.nodes[next] = entities.Node{ID: next}
	return next, nil
}

// GetOrCreateNode returns the node and whether it was created by this
// call.
func (r *nodeRegistry) GetOrCreateNode(id int) (entities.Node, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if node, known := r.nodes[id]; known {
		return node.Copy(), false
	}
	node := entities.Node{ID: id}
	r.nodes[id] = node
	return node, true
}

func (r *nodeRegistry) UpdateNode(node entities.Node) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.nodes[node.ID] = node.Copy()
}

func (r *nodeRegistry) Node(id int) (entities.Node, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	node, known := r.nodes[id]
	if !known {
		return entities.Node{}, false
	}
	return node.Copy(), true
}

func (r *nodeRegistry) Nodes() []entities.Node {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.sortedNodes()
}

func (r *nodeRegistry) SetNodeAlias(id int, alias string) error {
	r.mutex.Lock()
	node, known := r.nodes[id]
	if !known {
		r.mutex.Unlock()
		return errors.Errorf("unknown node %d", id)
	}
	node.Alias = alias
	r.nodes[id] = node
	r.mutex.Unlock()
	return r.Save()
}

// sortedNodes returns deep copies ordered by id. Callers must hold the
// lock.
func (r *nodeRegistry) sortedNodes() []entities.Node {
	nodes := make([]entities.Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node.Copy())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

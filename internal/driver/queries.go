package driver

const (
	SaveEntityQuery = `
		MERGE (n:Entity {id: $id})
		SET n.project_id = $project_id,
			n.entity_type = $entity_type,
			n.sub_type = $sub_type,
			n.name = $name,
			n.description = $description,
			n.position_x = $position_x,
			n.position_y = $position_y,
			n.attributes = $attributes,
			n.created_at = $created_at
		RETURN n.id AS id
	`

	DeleteEntityQuery = `
		MATCH (n:Entity {id: $id})
		DETACH DELETE n
	`

	UpdatePositionQuery = `
		MATCH (n:Entity {id: $id})
		SET n.position_x = $position_x,
			n.position_y = $position_y
		RETURN n.id AS id
	`

	SaveRelationQuery = `
		MATCH (source:Entity {id: $source_id})
		MATCH (target:Entity {id: $target_id})
		MERGE (source)-[e:RELATES_TO {id: $id}]->(target)
		SET e.project_id = $project_id,
			e.source_type = $source_type,
			e.target_type = $target_type,
			e.relation = $relation,
			e.created_at = $created_at
		RETURN e.id AS id
	`

	UpdateRelationQuery = `
		MATCH ()-[e:RELATES_TO {id: $id}]->()
		SET e.relation = $relation,
			e.source_type = $source_type,
			e.target_type = $target_type
		RETURN e.id AS id
	`

	DeleteRelationQuery = `
		MATCH ()-[e:RELATES_TO {id: $id}]->()
		DELETE e
	`

	ListEntitiesQuery = `
		MATCH (n:Entity {project_id: $project_id})
		RETURN n.id AS id, n.entity_type AS entity_type, n.sub_type AS sub_type,
			n.name AS name, n.description AS description,
			n.position_x AS position_x, n.position_y AS position_y,
			n.attributes AS attributes, n.created_at AS created_at
		ORDER BY n.created_at
	`

	ListRelationsQuery = `
		MATCH (s:Entity {project_id: $project_id})-[e:RELATES_TO]->(t:Entity {project_id: $project_id})
		RETURN e.id AS id, s.id AS source_id, t.id AS target_id,
			e.source_type AS source_type, e.target_type AS target_type,
			e.relation AS relation, e.created_at AS created_at
		ORDER BY e.created_at
	`
)
